// ABOUTME: Tests for the .env file loader.
// ABOUTME: Verifies parsing of KEY=VALUE pairs, comments, quotes, and no-override behavior.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetForTest unsets an env var and registers cleanup to unset it again after the test.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	_ = os.Unsetenv(key)
	t.Cleanup(func() { _ = os.Unsetenv(key) })
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadDotEnv_BasicKeyValue(t *testing.T) {
	path := writeEnvFile(t, "TEST_DOTENV_BASIC=hello\n")
	unsetForTest(t, "TEST_DOTENV_BASIC")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_BASIC"); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	path := writeEnvFile(t, "TEST_DOTENV_EXISTING=fromfile\n")
	t.Setenv("TEST_DOTENV_EXISTING", "fromenv")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_EXISTING"); got != "fromenv" {
		t.Errorf("got %q, want %q (should not override)", got, "fromenv")
	}
}

func TestLoadDotEnv_QuotedValues(t *testing.T) {
	path := writeEnvFile(t, "TEST_DOTENV_DOUBLE=\"double quoted\"\nTEST_DOTENV_SINGLE='single quoted'\n")
	unsetForTest(t, "TEST_DOTENV_DOUBLE")
	unsetForTest(t, "TEST_DOTENV_SINGLE")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_DOUBLE"); got != "double quoted" {
		t.Errorf("double: got %q", got)
	}
	if got := os.Getenv("TEST_DOTENV_SINGLE"); got != "single quoted" {
		t.Errorf("single: got %q", got)
	}
}

func TestLoadDotEnv_CommentsAndBlankLines(t *testing.T) {
	path := writeEnvFile(t, "# a comment\n\nTEST_DOTENV_AFTER=value\nnot a pair\n")
	unsetForTest(t, "TEST_DOTENV_AFTER")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_AFTER"); got != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestLoadDotEnv_MissingFileIsNil(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "no-such.env")); err != nil {
		t.Errorf("missing file must not error, got %v", err)
	}
}
