package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/pkg/ddl"
	"github.com/andressep95/annotations/pkg/registry"
)

var (
	applyAll    bool
	applyDryRun bool
)

// applyCmd materializes catalogs
var applyCmd = &cobra.Command{
	Use:   "apply [catalog]",
	Short: "Create the tables of a catalog in the database",
	Long: `Create the missing tables of a catalog in its namespace, in one transaction
under an advisory lock. Existing tables that differ from the catalog are
reported and nothing is applied; see verify.

Examples:
  annotations apply commerce --db postgres://localhost/app
  annotations apply --all --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs, err := selectCatalogs(args, applyAll)
		if err != nil {
			return err
		}
		for _, c := range catalogs {
			if err := applyCatalog(cmd, c); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyAll, "all", false, "Every catalog")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Print the SQL without executing it")
}

func applyCatalog(cmd *cobra.Command, catalog *registry.Registry) error {
	ctx := cmd.Context()
	db, err := connect(ctx, catalog)
	if err != nil {
		return err
	}
	defer db.Close()
	applier := ddl.NewApplier(db)

	if applyDryRun {
		diff, err := applier.Verify(ctx, catalog)
		if err != nil {
			return err
		}
		if diff.HasDrift() {
			return driftError(catalog, diff)
		}
		if len(diff.TablesAdded) == 0 {
			output.Success("%s: nothing to apply", catalog.Name())
			return nil
		}
		up, _ := applier.Planner().Plan(&ddl.SchemaDiff{Namespace: diff.Namespace, TablesAdded: diff.TablesAdded})
		output.Info("%s: would create %d table(s)", catalog.Name(), len(diff.TablesAdded))
		output.SQL(up)
		return nil
	}

	diff, err := applier.Materialize(ctx, catalog)
	if errors.Is(err, ddl.ErrDrift) {
		return driftError(catalog, diff)
	}
	if err != nil {
		return err
	}
	if len(diff.TablesAdded) == 0 {
		output.Success("%s: already materialized", catalog.Name())
		return nil
	}
	for _, t := range diff.TablesAdded {
		output.Success("created %s.%s", catalog.Namespace(), t.Name)
	}
	return nil
}

func driftError(catalog *registry.Registry, diff *ddl.SchemaDiff) error {
	output.Section("Drift in " + catalog.Name())
	for _, line := range diff.Summary() {
		output.Warning("%s", line)
	}
	return fmt.Errorf("%s: namespace %s differs from the catalog; run verify for the reconciling SQL", catalog.Name(), catalog.Namespace())
}
