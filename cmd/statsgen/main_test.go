package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"generate", "inspect", "cache", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.Flags().Lookup("force-cache"))
}

func TestInspectCommand(t *testing.T) {
	t.Setenv("ACCESS_TOKEN", "")
	t.Setenv("USER_NAME", "")

	path := filepath.Join(t.TempDir(), "theme.svg")
	require.NoError(t, os.WriteFile(path, []byte(
		`<svg xmlns="http://www.w3.org/2000/svg"><text><tspan>hello</tspan></text></svg>`,
	), 0644))

	// runInspect writes to stdout; capture it.
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	rootCmd.SetArgs([]string{"inspect", path})
	execErr := rootCmd.Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = old

	require.NoError(t, execErr)
	assert.Contains(t, buf.String(), "0: hello")
}

func TestGenerateFailsWithoutCredentials(t *testing.T) {
	t.Setenv("ACCESS_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("USER_NAME", "")

	rootCmd.SetArgs([]string{"generate"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
