package command

import (
	"github.com/mosaicnetworks/streamlet/src/config"
	"github.com/spf13/cobra"
)

var _config = config.NewDefaultConfig()

//RootCmd is the root command for Streamlet
var RootCmd = &cobra.Command{
	Use:              "streamlet",
	Short:            "Streamlet consensus simulator",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(
		NewRunCmd(),
		NewVersionCmd(),
	)
}
