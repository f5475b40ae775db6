package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCmdSubcommands(t *testing.T) {
	cmd := NewAuthCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "connect")
	assert.Contains(t, names, "disconnect")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "callback")
}

func TestPostCmdFlags(t *testing.T) {
	cmd := NewPostCmd()

	require.NotNil(t, cmd.Flags().Lookup("image"))
	require.NotNil(t, cmd.Flags().Lookup("generate"))
}

func TestGenerateCmdFlags(t *testing.T) {
	cmd := NewGenerateCmd()

	require.NotNil(t, cmd.Flags().Lookup("image"))
}

func TestCommandsFailWithoutApp(t *testing.T) {
	// Commands require the app in the context; a bare invocation errors out
	// instead of panicking.
	cmd := newAuthStatusCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.Error(t, err)
}
