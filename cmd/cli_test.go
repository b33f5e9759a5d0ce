package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	actorID = ""
	outputFormat = "table"
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v error = %v", args, err)
	}
	return out.String()
}

func TestCLIRegisterAndShowAccount(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	body := "database:\n  dsn: " + filepath.Join(dir, "cli.db") + "\ncache:\n  driver: sqlite\nhttp:\n  jwt_secret: cli-secret\n"
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if out := runCLI(t, "--config", cfg, "init-db"); !strings.Contains(out, "database schema initialized") {
		t.Fatalf("init-db output = %q", out)
	}

	out := runCLI(t, "--config", cfg, "-o", "json", "account", "register", "--username", "ada", "--role", "researcher")
	var registered struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal([]byte(out), &registered); err != nil {
		t.Fatalf("decode register output %q: %v", out, err)
	}
	if registered.ID == "" || registered.Role != "researcher" {
		t.Fatalf("registered = %+v", registered)
	}

	out = runCLI(t, "--config", cfg, "--actor", registered.ID, "account", "show")
	if !strings.Contains(out, "ada") {
		t.Fatalf("account show output = %q", out)
	}

	out = runCLI(t, "--config", cfg, "--actor", registered.ID, "account", "token")
	if parts := strings.Split(strings.TrimSpace(out), "."); len(parts) != 3 {
		t.Fatalf("token output = %q", out)
	}

	out = runCLI(t, "--config", cfg, "-o", "yaml", "audit", "list", "--action", "auth.register")
	if !strings.Contains(out, "auth.register") {
		t.Fatalf("audit list output = %q", out)
	}
}
