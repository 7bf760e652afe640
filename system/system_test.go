package system

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/pin-definition-importer/pindef"
)

func TestCreateAndOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Create(dir, "a-test-project", "v1")
	if err != nil {
		t.Fatalf("❌ Create failed: %v", err)
	}
	if s.DisplayName() != "A Test Project" {
		t.Errorf("unexpected display name %q", s.DisplayName())
	}
	if _, err := os.Stat(filepath.Join(dir, "a-test-project", "system.json")); err != nil {
		t.Errorf("system.json not written: %v", err)
	}

	if _, err := Create(dir, "a-test-project", "v1"); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	if _, err := Create(dir, "", "v1"); err == nil {
		t.Error("expected empty name to be rejected")
	}

	if err := s.SetDescription("bench rig"); err != nil {
		t.Fatalf("SetDescription failed: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	opened, err := Open(s.Path, "v1")
	if err != nil {
		t.Fatalf("❌ Open failed: %v", err)
	}
	if opened.Description() != "bench rig" {
		t.Errorf("description not persisted, got %q", opened.Description())
	}
	if _, err := Open(s.Path, "v9"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("expected ErrUnknownVersion, got %v", err)
	}
	t.Logf("✅ %s version %s round-tripped", opened.DisplayName(), opened.Version)
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"a-test-project": "A Test Project",
		"čas-test":       "Čas Test",
		"ÉTAGE-b":        "Étage B",
		"rig":            "Rig",
		"double--dash":   "Double  Dash",
	}
	for name, want := range cases {
		s := &System{Name: name}
		if got := s.DisplayName(); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestOpenWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig")
	if err := os.MkdirAll(filepath.Join(path, "v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{
	// edited by hand
	"description": {"type": "str", "display": true, "editable": true, "value": "lab"}
}`
	if err := os.WriteFile(filepath.Join(path, "system.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, "v1")
	if err != nil {
		t.Fatalf("❌ Open failed: %v", err)
	}
	if s.Description() != "lab" {
		t.Errorf("expected description lab, got %q", s.Description())
	}

	if err := os.WriteFile(filepath.Join(path, "system.json"), []byte(`{"description": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, "v1"); err == nil {
		t.Error("expected truncated system.json to be rejected")
	}
}

func TestModulesAndVersions(t *testing.T) {
	s, err := Create(t.TempDir(), "rig", "v1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m, err := s.ImportModule(pindef.NewImporter(), "../testdata/add_adapter.csv")
	if err != nil {
		t.Fatalf("❌ ImportModule failed: %v", err)
	}
	if _, err := s.ImportModule(pindef.NewImporter(), "../testdata/add_adapter.csv"); !errors.Is(err, ErrModuleExists) {
		t.Errorf("expected ErrModuleExists, got %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.NewVersion("v2"); err != nil {
		t.Fatalf("NewVersion failed: %v", err)
	}
	if err := s.NewVersion("v1"); !errors.Is(err, ErrVersionExists) {
		t.Errorf("expected ErrVersionExists, got %v", err)
	}

	versions, err := Versions(s.Path)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 2 || versions[0] != "v1" || versions[1] != "v2" {
		t.Errorf("unexpected versions %v", versions)
	}

	v2, err := Open(s.Path, "v2")
	if err != nil {
		t.Fatalf("Open v2 failed: %v", err)
	}
	copied := v2.Module(m.Name)
	if copied == nil {
		t.Fatalf("module %s not copied into v2", m.Name)
	}
	if len(copied.Pins) != len(m.Pins) {
		t.Errorf("expected %d pins, got %d", len(m.Pins), len(copied.Pins))
	}
	for i := range m.Pins {
		want, got := &m.Pins[i], &copied.Pins[i]
		if want.ID() != got.ID() || want.MainGUI.DisplayType() != got.MainGUI.DisplayType() {
			t.Errorf("pin %d differs after reload: %s vs %s", i, want, got)
		}
	}

	if err := v2.RemoveModule(m.Name); err != nil {
		t.Fatalf("RemoveModule failed: %v", err)
	}
	if err := v2.RemoveModule(m.Name); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}
	if err := v2.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Path, "v2", m.Name+".yaml")); !os.IsNotExist(err) {
		t.Errorf("removed module file still on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Path, "v1", m.Name+".yaml")); err != nil {
		t.Errorf("v1 must keep its module file: %v", err)
	}
}

func TestOpenOrBranch(t *testing.T) {
	s, err := Create(t.TempDir(), "rig", "v1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m, err := s.ImportModule(pindef.NewImporter(), "../testdata/add_adapter.csv")
	if err != nil {
		t.Fatalf("ImportModule failed: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	same, err := OpenOrBranch(s.Path, "v1")
	if err != nil {
		t.Fatalf("OpenOrBranch v1 failed: %v", err)
	}
	if same.Version != "v1" || same.Module(m.Name) == nil {
		t.Errorf("expected existing v1 with module %s, got version %s", m.Name, same.Version)
	}

	branched, err := OpenOrBranch(s.Path, "v2")
	if err != nil {
		t.Fatalf("❌ OpenOrBranch v2 failed: %v", err)
	}
	if branched.Version != "v2" {
		t.Errorf("expected version v2, got %s", branched.Version)
	}
	if branched.Module(m.Name) == nil {
		t.Errorf("module %s not carried into v2", m.Name)
	}
	if _, err := os.Stat(filepath.Join(s.Path, "v2", m.Name+".yaml")); err != nil {
		t.Errorf("v2 module file missing: %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(empty, "system.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenOrBranch(empty, "v1"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("expected ErrUnknownVersion without any version to branch from, got %v", err)
	}
	t.Logf("✅ branched %s from v1", branched.Version)
}
