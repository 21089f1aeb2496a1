// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import "testing"

func TestNewRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	want := []string{
		"list", "current", "show", "create", "import", "switch", "delete",
		"regenerate", "copy", "detect", "doctor", "backup", "restore",
		"audit", "wizard",
	}
	have := map[string]bool{}
	for _, sub := range cmd.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSetVersion(t *testing.T) {
	old := version
	defer func() { version = old }()

	SetVersion("1.2.3")
	if version != "1.2.3" {
		t.Errorf("version = %q", version)
	}
	if NewRootCmd().Version != "1.2.3" {
		t.Error("root command does not carry the injected version")
	}

	// Empty injection keeps the previous value.
	SetVersion("")
	if version != "1.2.3" {
		t.Errorf("empty SetVersion overwrote the version: %q", version)
	}
}

func TestGetConfigPathFromCliUnset(t *testing.T) {
	cmd := NewRootCmd()
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != nil {
		t.Errorf("unset --config flag should yield nil, got %q", *path)
	}
}
