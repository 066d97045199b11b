package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libportal/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	tokenSubject, tokenEmail, tokenTTL = "", "", 12*time.Hour
	importImages = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_ISSUER", "libportal-test")

	out, err := execute(t, "token", "--subject", "admin-1", "--email", "admin@example.edu", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewVerifier("test-secret", "libportal-test").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "admin@example.edu", claims.Email)
}

func TestTokenCmd_Errors(t *testing.T) {
	t.Run("missing subject", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "test-secret")
		_, err := execute(t, "token")
		assert.EqualError(t, err, "--subject is required")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "")
		_, err := execute(t, "token", "--subject", "admin-1")
		assert.EqualError(t, err, "AUTH_JWT_SECRET is required")
	})
}

func TestArgsValidation(t *testing.T) {
	_, err := execute(t, "seed")
	assert.Error(t, err)

	_, err = execute(t, "import", "news")
	assert.Error(t, err)

	_, err = execute(t, "migrate", "extra")
	assert.Error(t, err)
}

func TestImportCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "import", "news", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "missing.json")
}
