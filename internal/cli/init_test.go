package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eleven-am/dishdb/internal/config"
)

func TestInitCommand(t *testing.T) {
	dir := isolate(t)

	t.Run("writes config", func(t *testing.T) {
		out, err := execute(t, "init", "--driver", "postgresql", "--metrics")
		if err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if !strings.Contains(out, "Created dishdb.yaml") {
			t.Errorf("unexpected output %q", out)
		}

		cfg, err := config.Load(filepath.Join(dir, "dishdb.yaml"))
		if err != nil {
			t.Fatalf("failed to load written config: %v", err)
		}
		if cfg.Database.Driver != "postgres" {
			t.Errorf("expected driver postgres, got %s", cfg.Database.Driver)
		}
		if !strings.HasPrefix(cfg.Database.URL, "postgres://") {
			t.Errorf("expected sample postgres url, got %s", cfg.Database.URL)
		}
		if !cfg.Metrics.Enabled {
			t.Error("expected metrics to be enabled")
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := execute(t, "init")
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected already exists error, got %v", err)
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		if _, err := execute(t, "init", "--force", "--driver", "sqlite"); err != nil {
			t.Fatalf("init --force failed: %v", err)
		}
		cfg, err := config.Load("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Database.Driver != "sqlite" {
			t.Errorf("expected driver sqlite, got %s", cfg.Database.Driver)
		}
	})

	t.Run("custom output", func(t *testing.T) {
		path := filepath.Join(dir, "conf", "local.yaml")
		if _, err := execute(t, "init", "-o", path); err != nil {
			t.Fatalf("init -o failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	})

	t.Run("bad driver", func(t *testing.T) {
		if _, err := execute(t, "init", "--force", "--driver", "oracle"); err == nil {
			t.Error("expected error for unsupported driver")
		}
	})
}

func TestSchemaCommand(t *testing.T) {
	dir := isolate(t)

	t.Run("markdown", func(t *testing.T) {
		out, err := execute(t, "schema")
		if err != nil {
			t.Fatalf("schema failed: %v", err)
		}
		for _, want := range []string{
			"# Entity Schemas",
			"## restaurants",
			"| openingHours | object |  |",
			"| id |  | yes |",
			"- owner: LEFT JOIN users AS owner ON owner.id = restaurants.ownerId (ownerName, ownerEmail)",
			"**Default Order**: createdAt DESC",
			"## users",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output", want)
			}
		}
	})

	t.Run("json for one entity", func(t *testing.T) {
		out, err := execute(t, "schema", "menu_items", "--format", "json")
		if err != nil {
			t.Fatalf("schema failed: %v", err)
		}

		var docs []schemaDoc
		if err := json.Unmarshal([]byte(out), &docs); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(docs) != 1 || docs[0].Table != "menu_items" {
			t.Fatalf("unexpected docs %+v", docs)
		}
		if docs[0].JSONColumns["tags"] != "array" {
			t.Errorf("expected tags to be an array column, got %q", docs[0].JSONColumns["tags"])
		}
		if len(docs[0].Joins) != 2 {
			t.Errorf("expected 2 joins, got %d", len(docs[0].Joins))
		}
	})

	t.Run("yaml to file", func(t *testing.T) {
		path := filepath.Join(dir, "schema.yaml")
		out, err := execute(t, "schema", "orders", "-f", "yaml", "-o", path)
		if err != nil {
			t.Fatalf("schema failed: %v", err)
		}
		if !strings.Contains(out, "Schema exported to") {
			t.Errorf("unexpected output %q", out)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "table: orders") {
			t.Errorf("expected yaml table entry, got %s", data)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := execute(t, "schema", "payments"); err == nil {
			t.Error("expected error for unknown entity")
		}
		if _, err := execute(t, "schema", "--format", "dot"); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
