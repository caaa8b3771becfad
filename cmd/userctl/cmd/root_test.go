package cmd

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("USERSVC_AUTH_JWTSECRET", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("c"), 32)))
	t.Setenv("USERSVC_AUTH_BCRYPTCOST", "4")
	t.Setenv("USERSVC_DATABASE_PATH", filepath.Join(dir, "users.db"))
	t.Setenv("USERSVC_LOG_LEVEL", "error")

	pterm.DisableOutput()
	t.Cleanup(pterm.EnableOutput)
}

func run(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCreateAndList(t *testing.T) {
	setupEnv(t)

	require.NoError(t, run("create", "--username", "root", "--password", "rootpassword",
		"--email", "root@example.com", "--full-name", "Root", "--admin"))

	err := run("create", "--username", "root", "--password", "rootpassword",
		"--email", "other@example.com", "--full-name", "Root")
	assert.ErrorContains(t, err, "username already exists")

	err = run("create", "--username", "x y", "--password", "short",
		"--email", "nope", "--full-name", "X")
	assert.ErrorContains(t, err, "invalid account")

	assert.NoError(t, run("list"))
}

func TestAvatarRequiresStorage(t *testing.T) {
	setupEnv(t)
	err := run("avatar", "root", "missing.png")
	assert.ErrorContains(t, err, "object storage is not configured")
}
