package main

import (
	"fmt"
	"os"

	"github.com/eleven-am/dishdb/internal/cli"
	"github.com/eleven-am/dishdb/pkg/orm"
)

// Set at build time with -ldflags "-X main.gitCommit=... -X main.buildDate=..."
var (
	gitCommit string
	buildDate string
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func Execute() error {
	applyBuildInfo()

	cmd := cli.NewRootCommand()
	return cmd.Execute()
}

func applyBuildInfo() {
	orm.SetBuildInfo(gitCommit, buildDate)
}
