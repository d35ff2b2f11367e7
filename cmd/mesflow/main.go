// mesflow normalizes MES production exports into production events and
// reports on them: KPIs, groupings, project ranking, routes and flow.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Timestamps may name any IANA zone; do not depend on the host database.
	_ "time/tzdata"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps fatal error classes to distinct exit statuses.
func exitCode(err error) int {
	switch mferrors.GetCode(err) {
	case mferrors.CodeInvalidConfig:
		return 2
	case mferrors.CodeFileNotFound, mferrors.CodeSource:
		return 3
	case mferrors.CodeMissingColumn, mferrors.CodeInvalidFormat:
		return 4
	default:
		return 1
	}
}
