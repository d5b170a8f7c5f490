// Command scholarmatch resolves conference committee rosters to OpenAlex
// author records and collects their publications.
//
// Usage:
//
//	scholarmatch resolve committee.csv --out matches.csv
//	scholarmatch works matches.csv --out-dir works --year-min 2018
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
