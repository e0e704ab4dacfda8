package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eleven-am/dishdb/internal/models"
	"github.com/eleven-am/dishdb/pkg/orm"
)

// schemaDoc is the exported description of one entity
type schemaDoc struct {
	Table        string            `json:"table" yaml:"table"`
	PrimaryKey   string            `json:"primaryKey" yaml:"primary_key"`
	Columns      []string          `json:"columns" yaml:"columns"`
	JSONColumns  map[string]string `json:"jsonColumns,omitempty" yaml:"json_columns,omitempty"`
	Joins        []joinDoc         `json:"joins,omitempty" yaml:"joins,omitempty"`
	DefaultOrder string            `json:"defaultOrder,omitempty" yaml:"default_order,omitempty"`
}

type joinDoc struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Table    string   `json:"table" yaml:"table"`
	On       string   `json:"on" yaml:"on"`
	Columns  []string `json:"columns" yaml:"columns"`
	Optional bool     `json:"optional" yaml:"optional"`
}

func describeSchema(s *orm.Schema) schemaDoc {
	doc := schemaDoc{
		Table:      s.Table,
		PrimaryKey: s.PrimaryKey,
		Columns:    s.Columns,
	}

	if len(s.JSONColumns) > 0 {
		doc.JSONColumns = make(map[string]string, len(s.JSONColumns))
		for col, shape := range s.JSONColumns {
			doc.JSONColumns[col] = shape.String()
		}
	}

	for _, j := range s.Joins {
		table := j.Table
		if j.Alias != "" {
			table += " AS " + j.Alias
		}
		cols := make([]string, 0, len(j.Columns))
		for _, c := range j.Columns {
			cols = append(cols, c.Alias)
		}
		doc.Joins = append(doc.Joins, joinDoc{
			Name:     j.Name,
			Type:     string(j.Type),
			Table:    table,
			On:       j.On,
			Columns:  cols,
			Optional: j.Optional,
		})
	}

	terms := make([]string, 0, len(s.DefaultOrder))
	for _, t := range s.DefaultOrder {
		terms = append(terms, t.Column+" "+string(t.Direction))
	}
	doc.DefaultOrder = strings.Join(terms, ", ")

	return doc
}

func schemaCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "schema [entity]",
		Short: "Describe the entity schemas",
		Long: `Print the tables, columns, JSON columns and optional joins each entity
exposes to queries.

Export formats supported: markdown, json, yaml`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: models.SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := models.SchemaNames()
			if len(args) == 1 {
				if _, err := lookupSchema(args[0]); err != nil {
					return err
				}
				names = args
			}

			docs := make([]schemaDoc, 0, len(names))
			for _, name := range names {
				docs = append(docs, describeSchema(models.Schemas()[name]))
			}

			var rendered string
			switch format {
			case "markdown", "md":
				rendered = generateMarkdownOutput(docs)
			case "yaml", "yml":
				data, err := yaml.Marshal(docs)
				if err != nil {
					return fmt.Errorf("failed to render yaml: %w", err)
				}
				rendered = string(data)
			case "json":
				if output == "" {
					return writeJSON(cmd, docs)
				}
				var sb strings.Builder
				if err := encodeJSON(&sb, docs); err != nil {
					return err
				}
				rendered = sb.String()
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema exported to %s\n", output)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format: markdown, json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func generateMarkdownOutput(docs []schemaDoc) string {
	var sb strings.Builder
	sb.WriteString("# Entity Schemas\n\n")

	for _, doc := range docs {
		fmt.Fprintf(&sb, "## %s\n\n", doc.Table)
		sb.WriteString("| Column | JSON | Primary Key |\n")
		sb.WriteString("|--------|------|-------------|\n")
		for _, col := range doc.Columns {
			pk := ""
			if col == doc.PrimaryKey {
				pk = "yes"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", col, doc.JSONColumns[col], pk)
		}
		sb.WriteString("\n")

		if doc.DefaultOrder != "" {
			fmt.Fprintf(&sb, "**Default Order**: %s\n\n", doc.DefaultOrder)
		}

		if len(doc.Joins) > 0 {
			sb.WriteString("**Joins**:\n\n")
			joins := append([]joinDoc(nil), doc.Joins...)
			sort.Slice(joins, func(i, j int) bool { return joins[i].Name < joins[j].Name })
			for _, j := range joins {
				fmt.Fprintf(&sb, "- %s: %s %s ON %s (%s)\n", j.Name, j.Type, j.Table, j.On, strings.Join(j.Columns, ", "))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
