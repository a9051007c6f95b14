package lifecycle

import "context"

// Hook is one named step of the shutdown sequence.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// StopFunc adapts a blocking stop method that reports nothing. When ctx
// ends first the hook gives up waiting and returns ctx.Err(); stop keeps
// running in the background.
func StopFunc(stop func()) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			stop()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
