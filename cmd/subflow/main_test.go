package main

import (
	"bytes"
	"strings"
	"testing"
)

func setupCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUBTITLEDB_API_KEY", "test")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestRootShowsHelp(t *testing.T) {
	setupCLIEnv(t)
	out, err := runCLI(t)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "subflow")
	requireContains(t, out, "scan")
	requireContains(t, out, "upload")
}

func TestScanRejectsMissingDirectory(t *testing.T) {
	setupCLIEnv(t)
	if _, err := runCLI(t, "scan", "/nonexistent/subflow-test"); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	setupCLIEnv(t)
	out, err := runCLI(t, "cache", "stats")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Cache database:")
	requireContains(t, out, "Entries:")

	out, err = runCLI(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "Cache cleared")
}
