package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/mapsim/internal/config"
	"github.com/l1jgo/mapsim/internal/core/event"
	coresys "github.com/l1jgo/mapsim/internal/core/system"
	"github.com/l1jgo/mapsim/internal/data"
	"github.com/l1jgo/mapsim/internal/locale"
	"github.com/l1jgo/mapsim/internal/persist"
	"github.com/l1jgo/mapsim/internal/scripting"
	"github.com/l1jgo/mapsim/internal/system"
	"github.com/l1jgo/mapsim/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           L1JGO-MapSim  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        地圖模擬 · 副本流程伺服器          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation loop ──────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("MAPSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Optional PostgreSQL for the replica run log
	printSection("資料庫")
	var (
		repo        system.RunWriter
		replicaRepo *persist.ReplicaRepo
	)
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))
		replicaRepo = persist.NewReplicaRepo(db)
		repo = replicaRepo
	} else {
		printOK("未設定 DSN，副本紀錄僅寫入日誌")
	}
	fmt.Println()

	// 4. Static data
	printSection("資料載入")

	mapTable, err := data.LoadMapData(cfg.World.MapList, cfg.World.TerrainDir, log)
	if err != nil {
		return fmt.Errorf("load map data: %w", err)
	}
	printStat("地圖", mapTable.Count())

	monsterTable, err := data.LoadMonsterTable(cfg.World.MonsterList)
	if err != nil {
		return fmt.Errorf("load monster table: %w", err)
	}
	printStat("怪物模板", monsterTable.Count())

	replicaTable, err := data.LoadReplicaTable(cfg.World.ReplicaList)
	if err != nil {
		return fmt.Errorf("load replica table: %w", err)
	}
	printStat("副本腳本", replicaTable.Count())
	if replicaRepo != nil {
		printReplicaHistory(replicaRepo, replicaTable.MapIDs(), log)
	}

	// 5. Lua scripts: replica timers and broadcast texts
	engine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	defer engine.Close()
	timers := world.ReplicaTimers(engine.GetReplicaTimers())
	texts := scripting.NewScriptedTexts(engine, locale.NewAnnouncer(cfg.Server.Language))
	printOK(fmt.Sprintf("Lua 腳本載入完成 (倒數 %s, 波次間隔 %s)", timers.WarmupStep, timers.WavePause))

	// 6. World
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	bus := event.NewBus()
	mgr, err := world.NewManager(mapTable, replicaTable, world.Deps{
		Clock:      world.SystemClock{},
		Rand:       world.NewRand(seed),
		Settings:   world.NewSettings(cfg.World.SiegeStage, cfg.World.SiegeDrop, cfg.World.SiegeMaps),
		Monsters:   monsterTable,
		Texts:      texts,
		Bus:        bus,
		Log:        log,
		Timers:     timers,
		SpawnPoint: world.Point{X: cfg.Replica.SpawnX, Y: cfg.Replica.SpawnY},
	})
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}
	printStat("開啟地圖分流", mgr.Count())
	fmt.Println()

	// 7. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewMapSystem(mgr))
	replicaLog := system.NewReplicaLogSystem(bus, repo, log)
	runner.Register(replicaLog)
	runner.Register(system.NewCleanupSystem(mgr, log))

	// 8. Start loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Tick.Rate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("模擬迴圈啟動 (tick: %s)", cfg.Tick.Rate))
	fmt.Println()

	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now, cfg.Tick.Rate)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			replicaLog.Flush()
			if n := replicaLog.Pending(); n > 0 {
				log.Warn("副本紀錄未能寫入", zap.Int("pending", n))
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

// printReplicaHistory logs past run outcomes per replica map.
func printReplicaHistory(repo *persist.ReplicaRepo, mapIDs []int, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range mapIDs {
		counts, err := repo.CountByOutcome(ctx, id)
		if err != nil {
			log.Warn("讀取副本歷史失敗", zap.Int("map", id), zap.Error(err))
			return
		}
		if len(counts) == 0 {
			continue
		}
		log.Info("副本歷史",
			zap.Int("map", id),
			zap.Int("cleared", counts[event.OutcomeCleared]),
			zap.Int("guard_died", counts[event.OutcomeGuardDied]),
			zap.Int("abandoned", counts[event.OutcomeAbandoned]),
		)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
