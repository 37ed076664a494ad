package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/txn2/pimixer/cmd/pimixer/mcp"
	"github.com/txn2/pimixer/cmd/pimixer/run"
	"github.com/txn2/pimixer/cmd/pimixer/version"
)

var globalUsage = `Bridge a five-channel mixer control surface to a serial device.

pimixer keeps five channel values (four apps and a master, 0-1023),
broadcasts them to the device as "v0|v1|v2|v3|v4\r\n" frames, saves them
to ~/.pimixer/mixer.conf when they change and boosts the display backlight
when the surface is touched.`

// Version is set at build time
var Version = "0.0.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pimixer",
		Short: "Serial mixer control surface.",
		Long:  globalUsage,
	}

	run.Version = Version
	mcp.Version = Version
	version.Version = Version

	cmd.AddCommand(version.Cmd, run.Cmd, mcp.Cmd)

	return cmd
}

func main() {
	cmd := newRootCmd()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
