package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// capture redirects help, version and dry-run output for one test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	t.Setenv("SOCKLAB_CONFIG", "")
	return &buf
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out := capture(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "socklab ") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_Help verifies --help returns without starting the menu.
func TestExecute_Help(t *testing.T) {
	capture(t)
	for _, args := range [][]string{{"--help"}, {"-h"}, {"-h", "echo"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	out := capture(t)
	err := Execute(context.Background(), []string{
		"--timeout", "2.5", "--non-blocking", "--echo-port", "9000", "--dry-run", "2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := out.String()
	for _, want := range []string{"Configuration OK", "module:      echo", "2.5s", "Non-blocking", "port 9000"} {
		if !strings.Contains(s, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, s)
		}
	}
}

// TestExecute_DryRunDefaults shows the menu is the default.
func TestExecute_DryRunDefaults(t *testing.T) {
	out := capture(t)
	if err := Execute(context.Background(), []string{"--dry-run"}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"(menu)", "None (Blocking)", "send 4096, receive 4096", "(ask)", "port 5000"} {
		if !strings.Contains(s, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, s)
		}
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	capture(t)
	cases := [][]string{
		{"--send-buffer", "512", "--dry-run"},
		{"--recv-buffer", "70000", "--dry-run"},
		{"--timeout", "-1", "--dry-run"},
		{"--chat-port", "0", "--dry-run"},
		{"--echo-port", "65536", "--dry-run"},
		{"--dry-run", "tunnel"},
		{"--dry-run", "9"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := Execute(context.Background(), args); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	capture(t)
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_TooManyArgs verifies only one module may be named.
func TestExecute_TooManyArgs(t *testing.T) {
	capture(t)
	err := Execute(context.Background(), []string{"echo", "chat", "--dry-run"})
	if err == nil {
		t.Fatal("expected error for two modules")
	}
	if !strings.Contains(err.Error(), "too many arguments") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestExecute_Precedence checks flags beat the environment, which
// beats the config file.
func TestExecute_Precedence(t *testing.T) {
	out := capture(t)
	path := filepath.Join(t.TempDir(), "socklab.yaml")
	body := "timeout: 3\nsendBuffer: 8192\nrecvBuffer: 8192\nchat:\n  port: 6000\nntpServer: file.example.org\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOCKLAB_CHAT_PORT", "7000")
	t.Setenv("SOCKLAB_NTP_SERVER", "env.example.org")

	err := Execute(context.Background(), []string{
		"--config", path, "--recv-buffer", "4096", "--ntp-server", "flag.example.org", "--dry-run",
	})
	if err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{
		"3s",                      // file
		"send 8192, receive 4096", // file, then flag
		"port 7000",               // env over file
		"flag.example.org",        // flag over env
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

// TestExecute_ConfigFromEnv verifies SOCKLAB_CONFIG names the file.
func TestExecute_ConfigFromEnv(t *testing.T) {
	out := capture(t)
	path := filepath.Join(t.TempDir(), "socklab.yaml")
	if err := os.WriteFile(path, []byte("logDir: /var/tmp/socklab\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOCKLAB_CONFIG", path)

	if err := Execute(context.Background(), []string{"--dry-run"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "/var/tmp/socklab") {
		t.Errorf("config file from env not loaded:\n%s", out.String())
	}
}

// TestExecute_BadConfigFile verifies YAML errors are reported.
func TestExecute_BadConfigFile(t *testing.T) {
	capture(t)
	path := filepath.Join(t.TempDir(), "socklab.yaml")
	if err := os.WriteFile(path, []byte("timeout: [1, 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Execute(context.Background(), []string{"-f", path, "--dry-run"}); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
