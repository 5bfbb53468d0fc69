package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReplicaRun is one finished replica instance.
type ReplicaRun struct {
	RunID      uuid.UUID
	MapID      int
	RouteID    int
	Outcome    string // cleared, guard_died, abandoned
	WavesTotal int
	WavesSeen  int
	StartedAt  time.Time
	ClosedAt   time.Time
}

// Duration is how long the run lasted from warmup to teardown.
func (r ReplicaRun) Duration() time.Duration {
	return r.ClosedAt.Sub(r.StartedAt)
}

type ReplicaRepo struct {
	db *DB
}

func NewReplicaRepo(db *DB) *ReplicaRepo {
	return &ReplicaRepo{db: db}
}

// WriteRuns writes a batch of finished runs in a single transaction.
func (r *ReplicaRepo) WriteRuns(ctx context.Context, runs []ReplicaRun) error {
	if len(runs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replica runs begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, run := range runs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO replica_runs (run_id, map_id, route_id, outcome, waves_total, waves_seen, started_at, closed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (run_id) DO NOTHING`,
			run.RunID, run.MapID, run.RouteID, run.Outcome, run.WavesTotal, run.WavesSeen, run.StartedAt, run.ClosedAt,
		); err != nil {
			return fmt.Errorf("replica runs insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CountByOutcome returns how many runs of a map ended with each outcome.
func (r *ReplicaRepo) CountByOutcome(ctx context.Context, mapID int) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM replica_runs WHERE map_id = $1 GROUP BY outcome`,
		mapID,
	)
	if err != nil {
		return nil, fmt.Errorf("replica runs query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("replica runs scan: %w", err)
		}
		out[outcome] = n
	}
	return out, rows.Err()
}
