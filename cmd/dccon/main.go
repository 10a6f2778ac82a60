// Command dccon administers users, groups and DNS records on a Samba domain
// controller from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/isometry/terraform-provider-dccon/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand(cli.Options{Version: version})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dccon:", err)
		stop()
		os.Exit(1)
	}
}
