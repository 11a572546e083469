// Package messenger is the boundary to the user-facing message UI. Every
// connection and validation failure is surfaced through it exactly once.
package messenger

import "go.uber.org/zap"

type Messenger interface {
	// Show displays a one-shot message to the user.
	Show(message string, warning bool)
	// Ask poses a yes/no question and runs exactly one continuation.
	Ask(message string, onAccept, onDecline func())
}

// Console is the headless implementation: messages go to the log and
// questions take their accept branch.
type Console struct {
	Log *zap.Logger
}

func (c Console) Show(message string, warning bool) {
	if warning {
		c.Log.Warn(message)
		return
	}
	c.Log.Info(message)
}

func (c Console) Ask(message string, onAccept, _ func()) {
	c.Log.Info(message, zap.String("answer", "accept"))
	if onAccept != nil {
		onAccept()
	}
}
