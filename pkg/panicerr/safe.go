package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Try runs fn and converts a panic inside it into an error, so a bad snapshot
// write cannot take the whole process down.
func Try(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}

// TryContext is Try for functions that take a context.
func TryContext(ctx context.Context, fn func(context.Context) error) error {
	return Try(func() error {
		return fn(ctx)
	})
}
