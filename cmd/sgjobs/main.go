// Package main provides the sgjobs command-line tool that ingests, cleans and
// summarises the job postings dataset.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
