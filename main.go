// shroud is a DPI evasion engine.
//
// It detects how a network is censored, picks a way to reach a proxy
// server and hides a backend from active probes of a censor.
package main

import (
	"runtime/debug"

	"github.com/akab00m/shroud/internal/cli"
	"github.com/alecthomas/kong"
)

var version = "dev" // has to be set by ldflags

func main() {
	if buildInfo, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			version = buildInfo.Main.Version
		}
	}

	cli := &cli.CLI{}
	ctx := kong.Parse(cli, kong.Vars{
		"version": version,
	})

	ctx.FatalIfErrorf(ctx.Run(cli, version))
}
