package service

import (
	"context"
	"fmt"

	"spothire/internal/logging"
)

// Notifier publishes realtime events to every connected observer. It is
// injected into services (the ws hub implements it) to avoid an import cycle.
type Notifier interface {
	Emit(event string, payload interface{}) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event string, payload interface{}) error

func (f NotifierFunc) Emit(event string, payload interface{}) error {
	return f(event, payload)
}

// notify delivers an event best-effort. A nil notifier, a returned error or a
// panic inside the notifier are logged and never reach the caller.
func notify(ctx context.Context, n Notifier, log logging.Logger, event string, payload interface{}) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn(ctx, "notifier panicked", "event", event, "panic", fmt.Sprint(r))
		}
	}()
	if err := n.Emit(event, payload); err != nil {
		log.Warn(ctx, "notification dropped", "event", event, "error", err)
	}
}
