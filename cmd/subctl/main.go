// Command subctl administers the submission backend: migrations, dictionary
// registration and access tokens.
//
// Exit codes: 0 = success, 1 = operation rejected, 2 = command error.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/heartmarshall/submission-backend/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
