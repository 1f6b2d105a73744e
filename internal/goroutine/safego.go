// Package goroutine launches detached goroutines that cannot crash the process.
package goroutine

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn on a new goroutine. A panic is recovered and logged with its
// stack instead of terminating the process.
func SafeGo(log *slog.Logger, name string, fn func()) {
	go func() {
		defer Recover(log, name)
		fn()
	}()
}

// Recover is meant to be deferred. It logs a recovered panic under name.
func Recover(log *slog.Logger, name string) {
	if r := recover(); r != nil {
		log.Error("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
