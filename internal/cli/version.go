package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/dishdb/pkg/orm"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display dishdb version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), orm.FullVersionInfo())
		},
	}
}
