package system

import "github.com/spf13/cobra"

func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Database and bootstrap commands",
	}

	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewInitCommand())

	return cmd
}
