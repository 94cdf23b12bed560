package main

import (
	"os"
	"testing"
)

func TestRunHostsRequiresCacheDir(t *testing.T) {
	// An empty cache dir must be rejected instead of creating a
	// "snapshots" directory in the current working directory.
	wd := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Chdir(wd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Chdir(oldWd)

	if err := runHosts(HostsCmdOptions{Table: "default"}); err == nil {
		t.Fatal("expected error for empty cache dir")
	}
	if _, err := os.Stat("snapshots"); !os.IsNotExist(err) {
		t.Fatal("snapshots directory was created in the working directory")
	}
}
