// Package goroutine provides a panic-recovering goroutine launcher for
// background loops.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"nyxvpn/internal/shared/logger"
)

// SafeGo runs fn in a goroutine. A panic is caught and logged with its stack
// instead of taking down the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
