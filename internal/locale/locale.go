// Package locale renders the announcement texts broadcast by replica maps
// in the server's configured language.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	keyCountdown   = "Monsters will refresh in %d seconds, so be prepared!"
	keyWave        = "Wave %d of monsters has appeared, please pay attention to defence."
	keyAllDefeated = "All monsters have been defeated, and the halls will close in %d seconds."
	keyClosing     = "The guards are dead. The hall is closing."
)

var translations = map[language.Tag]map[string]string{
	language.TraditionalChinese: {
		keyCountdown:   "怪物將在 %d 秒後刷新，請做好準備！",
		keyWave:        "第 %d 波怪物已經出現，請注意防守。",
		keyAllDefeated: "所有怪物已被擊敗，大廳將在 %d 秒後關閉。",
		keyClosing:     "守衛已經陣亡，大廳即將關閉。",
	},
	language.SimplifiedChinese: {
		keyCountdown:   "怪物将在 %d 秒后刷新，请做好准备！",
		keyWave:        "第 %d 波怪物已经出现，请注意防守。",
		keyAllDefeated: "所有怪物已被击败，大厅将在 %d 秒后关闭。",
		keyClosing:     "守卫已经阵亡，大厅即将关闭。",
	},
	language.Japanese: {
		keyCountdown:   "%d 秒後にモンスターが出現します。準備してください！",
		keyWave:        "第 %d 波のモンスターが出現しました。防衛に注意してください。",
		keyAllDefeated: "すべてのモンスターを倒しました。%d 秒後にホールが閉鎖されます。",
		keyClosing:     "守衛が倒れました。ホールを閉鎖します。",
	},
}

var cat = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{keyCountdown, keyWave, keyAllDefeated, keyClosing} {
		_ = b.SetString(language.English, key, key)
	}
	for tag, msgs := range translations {
		for key, text := range msgs {
			_ = b.SetString(tag, key, text)
		}
	}
	return b
}

// TagFor maps the server language code (0=US, 3=Taiwan, 4=Japan, 5=China).
func TagFor(code int) language.Tag {
	switch code {
	case 3:
		return language.TraditionalChinese
	case 4:
		return language.Japanese
	case 5:
		return language.SimplifiedChinese
	default:
		return language.English
	}
}

// Announcer formats replica announcements. Not safe for concurrent use;
// maps announce from the tick goroutine only.
type Announcer struct {
	p *message.Printer
}

// NewAnnouncer returns an announcer for a server language code.
func NewAnnouncer(code int) *Announcer {
	return &Announcer{p: message.NewPrinter(TagFor(code), message.Catalog(cat))}
}

func (a *Announcer) Countdown(seconds int) string {
	return a.p.Sprintf(keyCountdown, seconds)
}

func (a *Announcer) WaveStarted(wave int) string {
	return a.p.Sprintf(keyWave, wave)
}

func (a *Announcer) AllDefeated(closeIn int) string {
	return a.p.Sprintf(keyAllDefeated, closeIn)
}

func (a *Announcer) Closing() string {
	return a.p.Sprintf(keyClosing)
}
