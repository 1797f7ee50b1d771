package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals installs SIGINT/SIGTERM handling that drives Shutdown.
// The handler is wired at most once per machine; repeated calls are no-ops.
// Callers wait on Done for shutdown completion.
func (m *Machine) HandleSignals(ctx context.Context) {
	m.signalOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			defer signal.Stop(sigCh)
			select {
			case sig := <-sigCh:
				m.logger.Notice(ctx, map[string]any{
					"message": "signal received",
					"signal":  sig.String(),
				})
				m.Shutdown(ctx, "signal: "+sig.String())
			case <-ctx.Done():
				m.Shutdown(context.WithoutCancel(ctx), "context canceled")
			case <-m.done:
			}
		}()
	})
}
