package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line string
		key  string
		val  string
		ok   bool
	}{
		{line: "PORT=9090", key: "PORT", val: "9090", ok: true},
		{line: "export LLM_PROVIDER=openai", key: "LLM_PROVIDER", val: "openai", ok: true},
		{line: `API_KEY="abc # not a comment"`, key: "API_KEY", val: "abc # not a comment", ok: true},
		{line: "LOG_LEVEL='debug'", key: "LOG_LEVEL", val: "debug", ok: true},
		{line: "CHUNK_SIZE=8000 # smaller chunks", key: "CHUNK_SIZE", val: "8000", ok: true},
		{line: "EMPTY=", key: "EMPTY", val: "", ok: true},
		{line: "# comment"},
		{line: "   "},
		{line: "NOVALUE"},
		{line: "BAD KEY=1"},
	}
	for _, tc := range cases {
		key, val, ok := parseEnvLine(tc.line)
		if ok != tc.ok || key != tc.key || val != tc.val {
			t.Fatalf("parseEnvLine(%q) = %q, %q, %v; want %q, %q, %v", tc.line, key, val, ok, tc.key, tc.val, tc.ok)
		}
	}
}

func TestLoadEnvFilesKeepsExistingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DECODER_TEST_SET=file\nDECODER_TEST_NEW=file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DECODER_TEST_SET", "shell")
	t.Setenv("DECODER_TEST_NEW", "")
	os.Unsetenv("DECODER_TEST_NEW")

	loadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	t.Cleanup(func() { os.Unsetenv("DECODER_TEST_NEW") })

	if got := os.Getenv("DECODER_TEST_SET"); got != "shell" {
		t.Fatalf("expected shell value to win, got %q", got)
	}
	if got := os.Getenv("DECODER_TEST_NEW"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
