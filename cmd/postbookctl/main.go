// Package main runs the postbookctl maintenance CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/postbook/internal/cli"
	entrypoint "github.com/louisbranch/postbook/internal/platform/cmd"
	"github.com/louisbranch/postbook/internal/version"
)

func main() {
	cmd := cli.NewRootCommand(os.Stdout, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCtl, cmd.ExecuteContext)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "postbookctl: %v\n", err)
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			os.Exit(withExitCode.ExitCode())
		}
		os.Exit(1)
	}
}
