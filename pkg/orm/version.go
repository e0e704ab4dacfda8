package orm

import (
	"fmt"
	"runtime"
)

// Version of the query engine
const Version = "0.3.0"

// BuildInfo contains build information, filled in by ldflags
var BuildInfo = struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}{
	Version:   Version,
	GoVersion: runtime.Version(),
}

// SetBuildInfo is called by the build process
func SetBuildInfo(commit, date string) {
	BuildInfo.GitCommit = commit
	BuildInfo.BuildDate = date
}

// FullVersionInfo returns detailed version information
func FullVersionInfo() string {
	info := fmt.Sprintf("dishdb %s\n", BuildInfo.Version)
	info += fmt.Sprintf("Go Version: %s\n", BuildInfo.GoVersion)
	info += fmt.Sprintf("Drivers: %s, %s, %s\n", MySQL, Postgres, SQLite)

	if BuildInfo.GitCommit != "" {
		info += fmt.Sprintf("Git Commit: %s\n", BuildInfo.GitCommit)
	}

	if BuildInfo.BuildDate != "" {
		info += fmt.Sprintf("Build Date: %s\n", BuildInfo.BuildDate)
	}

	return info
}
