// Command rdv is the CLI client for the orchestration platform: it manages
// sessions, folders, orchestrators, and memory through the same database
// rdvd serves over its Unix socket.
package main

import (
	"os"
	"runtime/debug"

	"github.com/remotedev/rdv/internal/commands"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
