package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

var (
	// Build information, set with -ldflags
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

// printVersionInfo displays detailed version information
func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "wingsctl %s\n", Version)
	fmt.Fprintf(w, "Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
