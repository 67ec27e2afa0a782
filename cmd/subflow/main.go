package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupted run has nothing useful to print.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "subflow:", err)
		}
		os.Exit(1)
	}
}
