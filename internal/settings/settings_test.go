package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.DefaultRelAltitude(); got != 20.0 {
		t.Errorf("default relative altitude %f, want 20", got)
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wpmanager.yaml")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetDefaultRelAltitude(35.5); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "WAYPOINT_MANAGER") {
		t.Errorf("settings file missing group key:\n%s", data)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.DefaultRelAltitude(); got != 35.5 {
		t.Errorf("reopened altitude %f, want 35.5", got)
	}
}

func TestOpenRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("WAYPOINT_MANAGER: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("malformed settings accepted")
	}
}
