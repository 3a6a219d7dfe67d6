package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/example/animelink/internal/platform/run"
)

func main() {
	a := newApp()
	root := newRootCommand(a)
	code := run.New(nil).WithSignals(func(ctx context.Context) error {
		defer a.close()
		err := root.ExecuteContext(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	})
	run.Exit(code)
}
