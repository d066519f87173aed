package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func bg() context.Context {
	return context.Background()
}

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}
