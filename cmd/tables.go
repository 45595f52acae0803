package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/schema"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
)

var (
	tablesYes bool

	// isInteractive and confirm are swapped in tests.
	isInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	confirm = ui.Confirm
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Create, drop or inspect the warehouse tables",
	Long: `Manage the two staging tables and the five star-schema tables.

Without table arguments every declared table is affected.`,
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create [table...]",
	Short: "Create tables that do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(cmd, args, "create")
	},
}

var tablesDropCmd = &cobra.Command{
	Use:   "drop [table...]",
	Short: "Drop tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(cmd, args, "drop")
	},
}

var tablesResetCmd = &cobra.Command{
	Use:   "reset [table...]",
	Short: "Drop and recreate tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(cmd, args, "reset")
	},
}

var tablesListCmd = &cobra.Command{
	Use:   "list [table...]",
	Short: "Show the declared tables, or the columns of the named tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.Output = cmd.OutOrStdout()
		v := schema.NewVisualizer(ui.ColorEnabled())
		if len(args) == 0 {
			fmt.Fprint(cmd.OutOrStdout(), v.SummaryTable(schema.All()))
			return nil
		}
		tables, err := schema.Resolve(args...)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintln(cmd.OutOrStdout(), v.ColumnTable(t))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesCreateCmd, tablesDropCmd, tablesResetCmd, tablesListCmd)

	tablesDropCmd.Flags().BoolVarP(&tablesYes, "yes", "y", false, "skip the confirmation prompt")
	tablesResetCmd.Flags().BoolVarP(&tablesYes, "yes", "y", false, "skip the confirmation prompt")
}

// confirmDestructive prompts on a terminal unless --yes was given.
func confirmDestructive(op string, tables []schema.Table) (bool, error) {
	if tablesYes || !isInteractive() {
		return true, nil
	}
	return confirm(fmt.Sprintf("%s %s?", strings.ToUpper(op[:1])+op[1:], strings.Join(schema.Names(tables), ", ")), false)
}

func runSchema(cmd *cobra.Command, args []string, op string) error {
	tables, err := schema.Resolve(args...)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	if op != "create" {
		ok, err := confirmDestructive(op, tables)
		if err != nil {
			return err
		}
		if !ok {
			a.ui.Warning("Aborted")
			return nil
		}
	}

	session, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	mgr := schema.NewManager(session, a.logger)
	switch op {
	case "create":
		err = mgr.Create(cmd.Context(), tables...)
	case "drop":
		err = mgr.Drop(cmd.Context(), tables...)
	default:
		err = mgr.Reset(cmd.Context(), tables...)
	}
	if err != nil {
		return err
	}

	verb := map[string]string{"create": "Created", "drop": "Dropped", "reset": "Reset"}[op]
	a.ui.Success(fmt.Sprintf("%s %d table(s): %s", verb, len(tables), strings.Join(schema.Names(tables), ", ")))
	return nil
}
