package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func init() {
	homedir.DisableCache = true
}

// isolate keeps config lookups away from the real home and working
// directories.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("JOT_CONFIG_PATH", home)
	t.Setenv("JOT_BLOBS", filepath.Join(home, "blobs"))
	t.Chdir(home)
}

func TestCommandTree(t *testing.T) {
	root := New()
	for _, path := range [][]string{
		{"notes", "list"},
		{"notes", "add"},
		{"notes", "edit"},
		{"notes", "fav"},
		{"notes", "rm"},
		{"notes", "watch"},
		{"todos", "done"},
		{"todos", "agenda"},
		{"ui"},
		{"version"},
		{"completion"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		if cmd.Name() != path[len(path)-1] {
			t.Fatalf("find %v: got %q", path, cmd.Name())
		}
	}
	if cmd, _, err := root.Find([]string{"notes", "done"}); err == nil && cmd.Name() == "done" {
		t.Fatal("notes must not have a done command")
	}
}

func TestListWithMemoryStore(t *testing.T) {
	isolate(t)

	root := New()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"notes", "list", "--store", "memory", "--owner", "alice", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestMissingOwner(t *testing.T) {
	isolate(t)
	t.Setenv("JOT_OWNER", "")

	root := New()
	root.SetArgs([]string{"todos", "list", "--store", "memory"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "no owner") {
		t.Fatalf("expected missing owner error, got %v", err)
	}
}
