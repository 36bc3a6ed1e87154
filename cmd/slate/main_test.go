package main

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	if got := getEnv("FOO", "default"); got != "bar" {
		t.Fatalf("getEnv returned %q, want %q", got, "bar")
	}
	if got := getEnv("MISSING", "default"); got != "default" {
		t.Fatalf("getEnv returned %q, want %q", got, "default")
	}
}

func TestGetEnvInt64(t *testing.T) {
	t.Setenv("N", "25")
	if got := getEnvInt64("N", 50); got != 25 {
		t.Fatalf("getEnvInt64 returned %d, want 25", got)
	}
	t.Setenv("N", "not-a-number")
	if got := getEnvInt64("N", 50); got != 50 {
		t.Fatalf("getEnvInt64 returned %d, want fallback 50", got)
	}
	if got := getEnvInt64("MISSING_N", 50); got != 50 {
		t.Fatalf("getEnvInt64 returned %d, want 50", got)
	}
}
