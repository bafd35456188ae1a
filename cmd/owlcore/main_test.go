package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "doctor", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not wired: %v", name, err)
		}
	}
}

func TestVersionCommandOutput(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "owlcore") {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

func TestResolveBrowserExplicitMissing(t *testing.T) {
	if _, err := resolveBrowser("/nonexistent/browser-binary"); err == nil {
		t.Fatalf("expected an error for a missing explicit binary")
	}
}
