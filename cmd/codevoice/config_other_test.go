//go:build !darwin

package main

import (
	"strings"
	"testing"

	"github.com/kalambet/codevoice/internal/config"
)

func TestConfigSetUnsetCommands(t *testing.T) {
	for _, k := range config.ValidKeys() {
		t.Setenv("CODEVOICE_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_")), "")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if _, err := runCmd(t, "", "config", "set", "session.default_tone", "Mentor"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := runCmd(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, dir) || !strings.Contains(out, "Mentor") {
		t.Errorf("config show after set:\n%s", out)
	}

	if _, err := runCmd(t, "", "config", "unset", "session.default_tone"); err != nil {
		t.Fatalf("config unset: %v", err)
	}
	if out, _ := runCmd(t, "", "config", "show"); strings.Contains(out, "Mentor") {
		t.Errorf("config show after unset still has Mentor:\n%s", out)
	}
	if _, err := runCmd(t, "", "config", "unset", "bogus"); err == nil {
		t.Error("expected error for unknown key")
	}
}
