package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	r, err := Load(writeCatalog(t, minimalCatalog))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	byType, ok := r.Lookup("lamp")
	if !ok {
		t.Fatal("lookup by type id failed")
	}
	byAlias, ok := r.Lookup("lights")
	if !ok {
		t.Fatal("lookup by alias failed")
	}
	if byType != byAlias {
		t.Error("alias must resolve to the same DeviceSpec instance")
	}

	if _, ok := r.Lookup("toaster"); ok {
		t.Error("unknown reference must not resolve")
	}

	if cmds := r.CommandsFor("lights"); len(cmds) != 2 {
		t.Errorf("expected 2 commands, got %d", len(cmds))
	}
	if cmds := r.CommandsFor("toaster"); cmds != nil {
		t.Errorf("expected nil commands for unknown device, got %v", cmds)
	}
}

func TestLoadRejectsMalformedWholesale(t *testing.T) {
	path := writeCatalog(t, `
devices:
  lamp:
    min_trust: 10
    commands:
      - name: set_x
        state_fields: [x]
        params:
          - name: x
            kind: integer
            range: [10, 0]
            default: 5
`)
	if _, err := Load(path); !errors.Is(err, ErrMalformedSpec) {
		t.Fatalf("expected ErrMalformedSpec, got %v", err)
	}
}

func TestReloadSwapsAtomically(t *testing.T) {
	path := writeCatalog(t, minimalCatalog)
	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	oldHash := r.Hash()

	// Valid rewrite swaps the table.
	updated := minimalCatalog + `
  fan:
    display_name: "Fan"
    min_trust: 20
    commands:
      - name: turn_on
        state_fields: [isOn]
`
	if err := os.WriteFile(path, []byte(updated), 0600); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := r.Lookup("fan"); !ok {
		t.Error("reloaded catalog missing new device")
	}
	if r.Hash() == oldHash {
		t.Error("hash should change after reload")
	}

	// Broken rewrite keeps the current table untouched.
	if err := os.WriteFile(path, []byte("devices: {}"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("expected reload error for empty catalog")
	}
	if _, ok := r.Lookup("fan"); !ok {
		t.Error("failed reload must keep previous table installed")
	}
}

func TestLoadDefault(t *testing.T) {
	r := LoadDefault()
	spec, ok := r.Lookup("57D56F4D-3302-41F7-AB34-5365AA180E81")
	if !ok {
		t.Fatal("external id alias must resolve")
	}
	if spec.TypeID != "dimmable_light" {
		t.Errorf("alias resolved to %q", spec.TypeID)
	}
	if len(r.Types()) < 5 {
		t.Errorf("expected at least 5 device types, got %v", r.Types())
	}
}
