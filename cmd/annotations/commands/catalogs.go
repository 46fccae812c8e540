package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/internal/models"
	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
)

// catalogsCmd lists the available catalogs
var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List catalogs and their tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalogs()
	},
}

func init() {
	rootCmd.AddCommand(catalogsCmd)
}

type catalogSummary struct {
	Name          string   `json:"name"`
	Namespace     string   `json:"namespace"`
	Tables        []string `json:"tables"`
	Relationships int      `json:"relationships"`
}

func summarize(catalogs []*registry.Registry) ([]catalogSummary, error) {
	summaries := make([]catalogSummary, 0, len(catalogs))
	for _, c := range catalogs {
		tables, err := c.Ordered()
		if err != nil {
			return nil, err
		}
		s := catalogSummary{Name: c.Name(), Namespace: c.Namespace(), Relationships: len(c.Relationships())}
		for _, t := range tables {
			s.Tables = append(s.Tables, t.Name)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func runCatalogs() error {
	catalogs, err := models.Catalogs()
	if err != nil {
		return err
	}
	summaries, err := summarize(catalogs)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{s.Name, s.Namespace, strings.Join(s.Tables, ", "), strconv.Itoa(s.Relationships)}
	}
	output.Table([]string{"Catalog", "Namespace", "Tables", "Edges"}, rows)
	return nil
}

// selectCatalogs resolves the catalog argument, or every catalog with --all.
func selectCatalogs(args []string, all bool) ([]*registry.Registry, error) {
	switch {
	case all && len(args) > 0:
		return nil, fmt.Errorf("--all cannot be combined with a catalog name")
	case all:
		return models.Catalogs()
	case len(args) == 1:
		catalog, err := models.Lookup(args[0])
		if err != nil {
			return nil, err
		}
		return []*registry.Registry{catalog}, nil
	default:
		return nil, fmt.Errorf("name a catalog (%s) or pass --all", strings.Join(models.Names(), ", "))
	}
}

// connect opens a pool bound to the namespace of catalog.
func connect(ctx context.Context, catalog *registry.Registry) (*runtime.DB, error) {
	db, err := runtime.Connect(ctx, cfg.Database.Runtime(catalog.Namespace()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
