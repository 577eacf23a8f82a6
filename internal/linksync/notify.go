package linksync

import "github.com/Gundoganfa/SomeNiceLinks/internal/logger"

// Kind classifies a notice.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notifier receives transient user-facing notices.
type Notifier interface {
	Notify(kind Kind, msg string)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(kind Kind, msg string)

func (f NotifierFunc) Notify(kind Kind, msg string) { f(kind, msg) }

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(kind Kind, msg string) {
	switch kind {
	case KindError:
		n.Log.Warn(msg, logger.String("notice", string(kind)))
	default:
		n.Log.Info(msg, logger.String("notice", string(kind)))
	}
}
