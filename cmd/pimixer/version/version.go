package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "0.0.0"

var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pimixer",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pimixer version: %s\n", Version)
	},
}
