package services

import "github.com/keyhaven/assignment-desk/internal/utils"

// Notifier is the injectable user-notification surface (the desk's toast
// equivalent). Services never print directly; tests inject NopNotifier.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type logNotifier struct{}

// NewLogNotifier returns a Notifier backed by the shared logger.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Info(msg string)  { utils.Logger.Info(msg) }
func (n *logNotifier) Warn(msg string)  { utils.Logger.Warn(msg) }
func (n *logNotifier) Error(msg string) { utils.Logger.Error(msg) }

// NopNotifier discards everything. For tests.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Warn(string)  {}
func (NopNotifier) Error(string) {}
