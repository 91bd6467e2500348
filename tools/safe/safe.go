package safe

import (
	"AMProject/logger"
)

// Go starts a goroutine that recovers from panics so a single
// misbehaving handler cannot take the whole process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
