package memory

import (
	"path/filepath"
	"testing"
)

func TestPutGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, ok := s.Get("Hello", "en", "ko"); ok {
		t.Error("empty memory reported a hit")
	}

	if err := s.Put("Hello", "안녕", "en", "ko"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("Hello", "en", "ko")
	if !ok || got != "안녕" {
		t.Errorf("Get = %q/%v, want 안녕/true", got, ok)
	}

	// Language pairs are isolated.
	if _, ok := s.Get("Hello", "en", "zh-cn"); ok {
		t.Error("hit across language pairs")
	}

	// Newest translation wins.
	if err := s.Put("Hello", "안녕하세요", "en", "ko"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("Hello", "en", "ko"); got != "안녕하세요" {
		t.Errorf("overwrite: got %q", got)
	}
	if n := s.Len("en", "ko"); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	if err := s.Put("a", "b", "en", "ko"); err != nil {
		t.Errorf("nil Put: %v", err)
	}
	if _, ok := s.Get("a", "en", "ko"); ok {
		t.Error("nil Get hit")
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tm.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("Exit", "종료", "en", "ko"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got, ok := s2.Get("Exit", "en", "ko"); !ok || got != "종료" {
		t.Errorf("reopened Get = %q/%v", got, ok)
	}
}
