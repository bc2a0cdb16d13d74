package news

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGroupsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groups.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGroups(t *testing.T) {
	path := writeGroupsFile(t, `[
		{"id": "bts", "name": "BTS", "aliases": ["Bangtan Boys"], "members": [{"name": "Jungkook"}]},
		{"id": "twice", "name": "TWICE"}
	]`)

	groups, err := LoadGroups(path)
	if err != nil {
		t.Fatalf("LoadGroups failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].ID != "bts" || groups[0].Name != "BTS" {
		t.Errorf("first group = %+v", groups[0])
	}
	if len(groups[0].Members) != 1 || groups[0].Members[0].Name != "Jungkook" {
		t.Errorf("members not parsed: %+v", groups[0].Members)
	}
}

func TestLoadGroups_MissingFields(t *testing.T) {
	path := writeGroupsFile(t, `[{"id": "bts"}]`)
	if _, err := LoadGroups(path); err == nil {
		t.Error("expected error for entry without a name")
	}
}

func TestLoadGroups_MissingFile(t *testing.T) {
	if _, err := LoadGroups(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
