package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/aniview/aniview/internal/domain"
)

// Execute starts fn on a new goroutine behind a recover guard. A panic in
// the worker actor, the sync dispatcher, or any other long-running loop is
// logged under goroutineName with its stack trace instead of taking down
// the whole service.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				// Log on a fresh context when the caller's is already done.
				logCtx := ctx
				if ctx.Err() != nil {
					logCtx = context.Background()
				}
				logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
					"panic_info", fmt.Sprintf("%v", r),
					"stacktrace", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
