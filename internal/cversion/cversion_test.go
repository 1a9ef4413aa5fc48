package cversion

import "testing"

func TestStringEmptyByDefault(t *testing.T) {
	Version, CommitSHA = "", ""

	s, err := String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}

	if s != "" {
		t.Fatalf("got %q, want empty", s)
	}
}

func TestStringWithVersionAndCommit(t *testing.T) {
	Version, CommitSHA = "1.2.3", "abc123"
	defer func() { Version, CommitSHA = "", "" }()

	s, err := String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}

	if s != "1.2.3 abc123" {
		t.Fatalf("got %q, want %q", s, "1.2.3 abc123")
	}
}

func TestStringRejectsInvalidSemver(t *testing.T) {
	Version = "not-a-version!!"
	defer func() { Version = "" }()

	if _, err := String(); err == nil {
		t.Fatal("expected an error for a malformed version string")
	}
}
