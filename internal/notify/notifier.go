// Package notify decouples the orchestrator core from any UI surface.
// Progress and failures are reported through a Notifier; the CLI wires a
// zap-backed implementation, editors can wire toast notifications.
package notify

import "go.uber.org/zap"

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Notifier receives user-visible progress and failure messages.
type Notifier interface {
	Notify(severity Severity, message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(severity Severity, message string)

func (f Func) Notify(severity Severity, message string) { f(severity, message) }

// ZapNotifier routes notifications to a zap sugared logger.
type ZapNotifier struct {
	log *zap.SugaredLogger
}

// NewZapNotifier wraps the given logger. A nil logger yields a no-op notifier.
func NewZapNotifier(log *zap.SugaredLogger) *ZapNotifier {
	return &ZapNotifier{log: log}
}

func (n *ZapNotifier) Notify(severity Severity, message string) {
	if n.log == nil {
		return
	}
	switch severity {
	case SeverityError:
		n.log.Error(message)
	case SeverityWarn:
		n.log.Warn(message)
	default:
		n.log.Info(message)
	}
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Notify(Severity, string) {}
