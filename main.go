package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mrlokans/cms-migrator/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	version := fmt.Sprintf("%s (%s)", Version, Commit)
	os.Exit(cli.Execute(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr))
}
