package cli

import "github.com/spf13/cobra"

// NewRootCmd assembles the coursebot command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coursebot",
		Short: "Course catalog assistant",
		Long: `coursebot answers questions about the course catalog using retrieval over
embedded course descriptions and a chat model.

Configuration is read from COURSEBOT_* environment variables (and a .env file).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(BuildCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(AskCmd())
	rootCmd.AddCommand(MigrateCmd())

	return rootCmd
}
