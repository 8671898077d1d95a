package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is the operator-facing notification channel, the headless
// counterpart of a UI toast. Implementations must be safe for concurrent
// use.
type Notifier interface {
	Successf(format string, a ...any)
	Infof(format string, a ...any)
	Errorf(format string, a ...any)
}

type logNotifier struct{}

func NewLog() Notifier { return logNotifier{} }

func (logNotifier) Successf(format string, a ...any) { log.Printf("[ok] "+format, a...) }
func (logNotifier) Infof(format string, a ...any)    { log.Printf("[info] "+format, a...) }
func (logNotifier) Errorf(format string, a ...any)   { log.Printf("[error] "+format, a...) }

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram notifies a fixed operator chat. Send failures are logged
// and dropped; notifications are best-effort by nature.
func NewTelegram(token string, chatID int64) (Notifier, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	return &telegramNotifier{bot: b, chatID: chatID}, nil
}

func (t *telegramNotifier) send(prefix, format string, a ...any) {
	msg := tgbotapi.NewMessage(t.chatID, prefix+" "+fmt.Sprintf(format, a...))
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("notify: telegram send: %v", err)
	}
}

func (t *telegramNotifier) Successf(format string, a ...any) { t.send("✅", format, a...) }
func (t *telegramNotifier) Infof(format string, a ...any)    { t.send("ℹ️", format, a...) }
func (t *telegramNotifier) Errorf(format string, a ...any)   { t.send("❌", format, a...) }

type multi []Notifier

// Multi fans every notification out to all channels.
func Multi(ns ...Notifier) Notifier { return multi(ns) }

func (m multi) Successf(format string, a ...any) {
	for _, n := range m {
		n.Successf(format, a...)
	}
}

func (m multi) Infof(format string, a ...any) {
	for _, n := range m {
		n.Infof(format, a...)
	}
}

func (m multi) Errorf(format string, a ...any) {
	for _, n := range m {
		n.Errorf(format, a...)
	}
}
