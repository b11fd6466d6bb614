// Copyright (c) 2024 BVK Chaitanya

package logdir

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogDir(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir, "testlogdir", 1)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	line := strings.Repeat("x", 1000)
	log := log.New(b, "", log.Flags())
	for i := 0; i < 3*1024; i++ {
		log.Print(line)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "testlogdir-*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) < 2 {
		t.Fatalf("want log files to be rotated, found %d files", len(matches))
	}
	for _, m := range matches {
		finfo, err := os.Stat(m)
		if err != nil {
			t.Fatal(err)
		}
		if finfo.Size() > 1024*1024 {
			t.Fatalf("log file %s is larger than the limit: %d", m, finfo.Size())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "testlogdir.log")); err != nil {
		t.Fatalf("current log file link is missing: %v", err)
	}
}
