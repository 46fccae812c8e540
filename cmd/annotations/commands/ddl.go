package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/pkg/ddl"
	"github.com/andressep95/annotations/pkg/registry"
)

var (
	ddlAll  bool
	ddlDown bool
)

// ddlCmd prints the DDL of catalogs
var ddlCmd = &cobra.Command{
	Use:   "ddl [catalog]",
	Short: "Print the DDL that creates (or with --down, drops) a catalog",
	Long: `Print the DDL that creates a catalog in an empty namespace.

Examples:
  annotations ddl commerce
  annotations ddl --all
  annotations ddl identity --down`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs, err := selectCatalogs(args, ddlAll)
		if err != nil {
			return err
		}
		for _, c := range catalogs {
			script, err := catalogDDL(c, ddlDown)
			if err != nil {
				return err
			}
			output.SQL(script)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ddlCmd)

	ddlCmd.Flags().BoolVar(&ddlAll, "all", false, "Every catalog")
	ddlCmd.Flags().BoolVar(&ddlDown, "down", false, "Print the DROP statements instead")
}

func catalogDDL(catalog *registry.Registry, down bool) (string, error) {
	up, downSQL, err := ddl.NewPlanner().CreateCatalog(catalog.Namespace(), catalog.All())
	if err != nil {
		return "", fmt.Errorf("catalog %s: %w", catalog.Name(), err)
	}
	script := up
	if down {
		script = downSQL
	}
	return fmt.Sprintf("-- catalog %s (namespace %s)\n\n%s", catalog.Name(), catalog.Namespace(), script), nil
}
