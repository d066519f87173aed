package server

import (
	"testing"
	"time"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

func TestReportStore_LookupRelease(t *testing.T) {
	s := NewReportStore()
	r := compiler.NewReport("p", nil, nil)
	r.ID = "r-1"
	s.Add(r)

	got, ok := s.Lookup("r-1")
	if !ok || got != r {
		t.Fatalf("Lookup = %v, %v", got, ok)
	}
	s.Release("r-1")
	if _, ok := s.Lookup("r-1"); ok {
		t.Error("report still present after Release")
	}
}

func TestReportStore_Sweep(t *testing.T) {
	s := NewReportStore()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old := compiler.NewReport("old", nil, nil)
	old.ID = "old"
	s.Add(old)

	now = now.Add(20 * time.Minute)
	fresh := compiler.NewReport("fresh", nil, nil)
	fresh.ID = "fresh"
	s.Add(fresh)

	now = now.Add(15 * time.Minute)
	if n := s.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.Lookup("old"); ok {
		t.Error("old report survived the sweep")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestReportStore_LookupRefreshes(t *testing.T) {
	s := NewReportStore()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	r := compiler.NewReport("p", nil, nil)
	r.ID = "r"
	s.Add(r)

	now = now.Add(25 * time.Minute)
	s.Lookup("r")
	now = now.Add(25 * time.Minute)
	if n := s.Sweep(30 * time.Minute); n != 0 {
		t.Errorf("recently used report was swept")
	}
}
