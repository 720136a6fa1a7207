// socklab - an interactive socket programming utility.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socklab/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "socklab: %v\n", err)
		os.Exit(1)
	}
}
