package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/pkg/ddl"
)

var verifyAll bool

// verifyCmd compares catalogs with the database
var verifyCmd = &cobra.Command{
	Use:   "verify [catalog]",
	Short: "Check that the database matches a catalog",
	Long: `Introspect the catalog namespace and report every difference from the
declared tables, with the SQL that would reconcile them. Exits non-zero on drift.

Examples:
  annotations verify commerce --db postgres://localhost/app
  annotations verify --all --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs, err := selectCatalogs(args, verifyAll)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var reports []verifyReport
		drift := false
		for _, c := range catalogs {
			db, err := connect(ctx, c)
			if err != nil {
				return err
			}
			applier := ddl.NewApplier(db)
			diff, err := applier.Verify(ctx, c)
			db.Close()
			if err != nil {
				return err
			}

			report := verifyReport{Catalog: c.Name(), Namespace: c.Namespace(), InSync: !diff.HasChanges()}
			if !report.InSync {
				drift = true
				report.Differences = diff.Summary()
				report.SQL, _ = applier.Planner().Plan(diff)
			}
			logFor(cmd).Debug().Str("catalog", c.Name()).Int("differences", len(report.Differences)).Msg("verified")
			reports = append(reports, report)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}
		} else {
			for _, r := range reports {
				printReport(r)
			}
		}
		if drift {
			return errDrift
		}
		return nil
	},
}

type verifyReport struct {
	Catalog     string   `json:"catalog"`
	Namespace   string   `json:"namespace"`
	InSync      bool     `json:"inSync"`
	Differences []string `json:"differences,omitempty"`
	SQL         string   `json:"sql,omitempty"`
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "Every catalog")
}

func printReport(r verifyReport) {
	if r.InSync {
		output.Success("%s: namespace %s matches the catalog", r.Catalog, r.Namespace)
		return
	}
	output.Section("Drift in " + r.Catalog)
	for _, line := range r.Differences {
		output.Warning("%s", line)
	}
	output.Muted("\nSQL that would reconcile namespace %s:", r.Namespace)
	output.SQL(r.SQL)
}
