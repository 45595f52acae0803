package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/pipeline"
)

var (
	loadAppend  bool
	runFailFast bool
)

var stageCmd = &cobra.Command{
	Use:   "stage [staging_table...]",
	Short: "Bulk-load raw JSON from S3 into the staging tables",
	Long: `Run one COPY per configured staging source, in configured order.

Each staging table is cleared first unless its source sets clear: false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, func(p *pipeline.Plan) (*pipeline.Plan, error) {
			narrowed, err := p.Only(args, nil)
			if err != nil {
				return nil, err
			}
			narrowed.Loads = nil
			return narrowed, nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [table...]",
	Short: "Derive the fact and dimension tables from staging",
	Long: `Run one INSERT-SELECT per configured load, in configured order.

Each target is emptied first unless the load appends (configured per table,
or --append for all).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, func(p *pipeline.Plan) (*pipeline.Plan, error) {
			narrowed, err := p.Only(nil, args)
			if err != nil {
				return nil, err
			}
			narrowed.Stages = nil
			if loadAppend {
				narrowed = narrowed.WithAppend()
			}
			return narrowed, nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stage then load, as configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd, func(p *pipeline.Plan) (*pipeline.Plan, error) {
			if loadAppend {
				return p.WithAppend(), nil
			}
			return p, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(stageCmd, loadCmd, runCmd)

	loadCmd.Flags().BoolVar(&loadAppend, "append", false, "append to every target instead of replacing it")
	runCmd.Flags().BoolVar(&loadAppend, "append", false, "append to every target instead of replacing it")

	for _, c := range []*cobra.Command{stageCmd, loadCmd, runCmd} {
		c.Flags().BoolVar(&runFailFast, "fail-fast", true, "stop at the first failed task (default from pipeline.fail_fast)")
	}
}

// runPlan builds the configured plan, lets narrow select from it and runs
// the result.
func runPlan(cmd *cobra.Command, narrow func(*pipeline.Plan) (*pipeline.Plan, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	p, err := pipeline.NewPlan(a.cfg)
	if err != nil {
		return err
	}
	p, err = narrow(p)
	if err != nil {
		return err
	}

	failFast := a.cfg.Pipeline.FailFast
	if cmd.Flags().Changed("fail-fast") {
		failFast = runFailFast
	}
	return a.execute(cmd.Context(), p, failFast)
}
