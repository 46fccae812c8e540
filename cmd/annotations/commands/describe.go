package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andressep95/annotations/cmd/annotations/output"
	"github.com/andressep95/annotations/cmd/annotations/tui"
	"github.com/andressep95/annotations/internal/describe"
	"github.com/andressep95/annotations/internal/models"
)

var (
	describeFormat      string
	describeInteractive bool
)

// describeCmd shows the tables, keys and relationships of a catalog
var describeCmd = &cobra.Command{
	Use:   "describe <catalog>",
	Short: "Show the columns, keys, constraints and relationships of a catalog",
	Long: `Show the columns, keys, constraints and resolved relationships of a catalog.

Examples:
  annotations describe commerce
  annotations describe academic --format yaml
  annotations describe identity -i`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDescribe(args[0])
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVarP(&describeFormat, "format", "f", "table", "Output format: table, yaml or json")
	describeCmd.Flags().BoolVarP(&describeInteractive, "interactive", "i", false, "Browse the catalog interactively")
}

func runDescribe(name string) error {
	catalog, err := models.Lookup(name)
	if err != nil {
		return err
	}
	doc, err := describe.Describe(catalog)
	if err != nil {
		return err
	}

	if describeInteractive {
		return tui.RunBrowser(doc)
	}

	format := describeFormat
	if jsonOutput {
		format = "json"
	}
	return writeDocument(os.Stdout, doc, format)
}

func writeDocument(w io.Writer, doc *describe.Catalog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		printDocument(doc)
		return nil
	default:
		return fmt.Errorf("unknown format %q: use table, yaml or json", format)
	}
}

func printDocument(doc *describe.Catalog) {
	output.Section(fmt.Sprintf("Catalog %s (namespace %s)", doc.Name, doc.Namespace))
	for _, t := range doc.Tables {
		fmt.Fprintln(output.Stdout)
		output.Info("%s.%s  %s", doc.Namespace, t.Name, t.Model)

		rows := make([][]string, len(t.Columns))
		for i, c := range t.Columns {
			rows[i] = []string{c.Name, c.Type, output.Mark(c.Nullable), c.Default, t.Flags(c)}
		}
		output.Table([]string{"Column", "Type", "Null", "Default", "Constraints"}, rows)

		if t.PrimaryKey != nil {
			output.Muted("  primary key %s (%s)", t.PrimaryKey.Name, strings.Join(t.PrimaryKey.Columns, ", "))
		}
		for _, u := range t.Uniques {
			output.Muted("  unique %s (%s)", u.Name, strings.Join(u.Columns, ", "))
		}
		for _, c := range t.Checks {
			output.Muted("  check %s %s", c.Name, c.Expression)
		}
		for _, fk := range t.ForeignKeys {
			line := fmt.Sprintf("  foreign key %s (%s) → %s on delete %s",
				fk.Name, strings.Join(fk.Columns, ", "), fk.References, strings.ToLower(fk.OnDelete))
			if fk.OrphanRemoval {
				line += ", orphan removal"
			}
			output.Muted("%s", line)
		}
		for _, idx := range t.Indexes {
			output.Muted("  index %s %s (%s)", idx.Name, idx.Method, strings.Join(idx.Columns, ", "))
		}
		for _, r := range t.Relationships {
			output.Muted("  %s", r.Edge(t.Name))
		}
	}
}
