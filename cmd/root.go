package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
)

var (
	cfgFile         string
	connectionAlias string
	logLevel        string
	logFormat       string
	noColor         bool
	quiet           bool

	rootCmd = &cobra.Command{
		Use:   "sparkify-dwh",
		Short: "Load the Sparkify star-schema warehouse",
		Long: `sparkify-dwh stages raw song and event logs from S3 into a warehouse,
then derives the songplays fact table and the users, songs, artists and
time dimensions with INSERT-SELECT statements.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Output = cmd.OutOrStdout()
			if noColor {
				ui.SetColor(false)
			}
		},
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.ShowError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.sparkify-dwh/config.yaml or $SPARKIFY_CONFIG)")
	flags.StringVarP(&connectionAlias, "connection", "c", "", "connection alias from the config registry")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: console or json")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only print errors")
}
