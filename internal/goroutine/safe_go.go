package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/truck-storefront/internal/logger"
)

// Go запускает фоновую задачу name. Panic внутри задачи логируется и не роняет процесс.
// Возвращаемый канал закрывается, когда задача завершилась.
func Go(ctx context.Context, name string, fn func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithField("task", name).
					WithField("stack", string(debug.Stack())).
					Errorf("panic в фоновой задаче: %v", r)
			}
		}()
		fn(ctx)
	}()
	return done
}
