package cli

import (
	"strings"
	"testing"

	"github.com/eleven-am/dishdb/pkg/orm"
)

func TestVersionCommand(t *testing.T) {
	isolate(t)

	t.Run("command structure", func(t *testing.T) {
		cmd := versionCommand()
		if cmd.Use != "version" {
			t.Errorf("expected Use to be 'version', got %s", cmd.Use)
		}

		if cmd.Short != "Show version information" {
			t.Errorf("expected Short to be 'Show version information', got %s", cmd.Short)
		}

		if cmd.Run == nil {
			t.Error("expected Run to be set")
		}
	})

	t.Run("version output", func(t *testing.T) {
		out, err := execute(t, "version")
		if err != nil {
			t.Fatalf("version failed: %v", err)
		}

		if !strings.HasPrefix(out, "dishdb "+orm.Version+"\n") {
			t.Errorf("expected version header, got %q", out)
		}
		if !strings.Contains(out, "Drivers: mysql, postgres, sqlite") {
			t.Errorf("expected driver list, got %q", out)
		}
	})

	t.Run("version flag", func(t *testing.T) {
		out, err := execute(t, "--version")
		if err != nil {
			t.Fatalf("--version failed: %v", err)
		}
		if !strings.Contains(out, orm.Version) {
			t.Errorf("expected %s in output, got %q", orm.Version, out)
		}
	})
}
