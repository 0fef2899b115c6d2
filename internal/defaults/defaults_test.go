package defaults

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestListDefaults(t *testing.T) {
	files, err := ListDefaults()
	if err != nil {
		t.Fatalf("ListDefaults failed: %v", err)
	}
	if !slices.Contains(files, "config.yaml") {
		t.Errorf("config.yaml not found in %v", files)
	}
}

func TestGetDefault(t *testing.T) {
	content, err := GetDefault("config.yaml")
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if len(content) == 0 {
		t.Error("config.yaml content is empty")
	}
}

func TestDataDirOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TURBO_DATA_DIR", tmpDir)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != tmpDir {
		t.Errorf("Expected %s, got %s", tmpDir, dir)
	}
}

func TestEnsureDataDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("TURBO_DATA_DIR", tmpDir)

	dir, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml was not copied: %v", err)
	}
}

func TestEnsureDataDirKeepsUserEdits(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TURBO_DATA_DIR", tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("Port: 4000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "Port: 4000\n" {
		t.Errorf("user config overwritten: %q", data)
	}

	if err := Reset(tmpDir); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) == "Port: 4000\n" {
		t.Error("Reset did not restore the default config")
	}
}

func TestAPIBaseURL(t *testing.T) {
	t.Setenv("TURBO_API_URL", "http://example.test:9000/")
	if got := APIBaseURL(); got != "http://example.test:9000" {
		t.Errorf("APIBaseURL() = %q", got)
	}
	t.Setenv("TURBO_API_URL", "")
	if got := APIBaseURL(); got != "http://localhost:3001" {
		t.Errorf("APIBaseURL() = %q", got)
	}
}
