package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/proof/internal/app"
	"go.trai.ch/proof/internal/engine/testrun"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [targets...|all]",
		Short: "Build targets and run their tests",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			flags := cmd.Flags()
			noCache, _ := flags.GetBool("no-cache")
			jobs, _ := flags.GetInt("jobs")
			outputMode, _ := flags.GetString("output-mode")
			ci, _ := flags.GetBool("ci")
			noTests, _ := flags.GetBool("notests")
			permissive, _ := flags.GetBool("permissive-tests")
			testCmd, _ := flags.GetString("testcmd")
			timeout, _ := flags.GetDuration("test-timeout")

			if ci {
				outputMode = "linear"
			}

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				NoCache:    noCache,
				Jobs:       jobs,
				OutputMode: outputMode,
				Tests: testrun.Options{
					NoTests:    noTests,
					Permissive: permissive,
					TestCmd:    testCmd,
					Timeout:    timeout,
				},
			})
		},
	}
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the build cache and force execution")
	cmd.Flags().IntP("jobs", "j", 0, "Number of nodes to run at once (default: number of CPUs)")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, linear, or quiet")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	cmd.Flags().Bool("notests", false, "Skip every test")
	cmd.Flags().Bool("permissive-tests", false, "Report failing tests as warnings and exit successfully")
	cmd.Flags().String("testcmd", "", "Wrap each test command, e.g. \"valgrind --error-exitcode=1 %s\"")
	cmd.Flags().Duration("test-timeout", 0, "Kill tests running longer than this (0 disables)")
	return cmd
}
