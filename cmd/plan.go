package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/pipeline"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/staging"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the statements a run would issue, without connecting",
	Long: `Render every statement of the configured run for the selected
connection's dialect. Credentials are replaced by placeholders or redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		d, err := a.selectedDialect()
		if err != nil {
			return err
		}
		p, err := pipeline.NewPlan(a.cfg)
		if err != nil {
			return err
		}
		if loadAppend {
			p = p.WithAppend()
		}

		auth := staging.PlaceholderAuthorizer(a.cfg.AWS.IAMRoleARN, a.cfg.AWS.StorageIntegration)
		stmts, err := p.Statements(cmd.Context(), d, auth, a.cfg.Pipeline.PlayPage)
		if err != nil {
			return err
		}

		switch planFormat {
		case "table":
			table := ui.NewTableTo(cmd.OutOrStdout())
			table.AddHeader("#", "Task", "Statement", "Args")
			for i, s := range stmts {
				first := strings.SplitN(s.SQL, "\n", 2)[0]
				table.AddRow(fmt.Sprintf("%d", i+1), s.Task, first, formatArgs(s.Args))
			}
			table.Render()
		case "sql":
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "-- dialect: %s\n", d.Name())
			task := ""
			for _, s := range stmts {
				if s.Task != task {
					fmt.Fprintf(out, "\n-- %s\n", s.Task)
					task = s.Task
				}
				if len(s.Args) > 0 {
					fmt.Fprintf(out, "-- args: %s\n", formatArgs(s.Args))
				}
				fmt.Fprintf(out, "%s;\n", s.SQL)
			}
		default:
			return fmt.Errorf("unknown format %q, expected sql or table", planFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "sql", "output format: sql or table")
	planCmd.Flags().BoolVar(&loadAppend, "append", false, "render every load as an append")
}

func formatArgs(args []interface{}) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%q", fmt.Sprint(arg))
	}
	return strings.Join(parts, ", ")
}
