package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFileParsesRecognizedKeys(t *testing.T) {
	cfg := Default()
	data := []byte(`# sample uoproxy config
port 2594
bind 0.0.0.0:2594
server login.example.com:2593
server_list main=10.0.0.1:2593,test=10.0.0.2:2593
background yes
autoreconnect true
antispy on
razor_workaround 1
light off
client_version "7.0.10.3"
`)
	require.NoError(t, cfg.applyFile("test.conf", data))

	assert.Equal(t, 2594, cfg.Port)
	assert.Equal(t, "0.0.0.0:2594", cfg.Bind)
	assert.Equal(t, "login.example.com:2593", cfg.Server)
	assert.Equal(t, []GameServerEntry{
		{Name: "main", Address: "10.0.0.1:2593"},
		{Name: "test", Address: "10.0.0.2:2593"},
	}, cfg.GameServers)
	assert.True(t, cfg.Background)
	assert.True(t, cfg.Autoreconnect)
	assert.True(t, cfg.Antispy)
	assert.True(t, cfg.RazorWorkaround)
	assert.False(t, cfg.Light)
	assert.Equal(t, "7.0.10.3", cfg.ClientVersion)
}

func TestApplyFileRejectsUnknownKey(t *testing.T) {
	cfg := Default()
	err := cfg.applyFile("test.conf", []byte("bogus value\n"))
	assert.Error(t, err)
}

func TestApplyFileIgnoresCommentsAndBlankLines(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyFile("test.conf", []byte("\n# a comment\n\nport 2595\n")))
	assert.Equal(t, 2595, cfg.Port)
}

func TestParseArgsOverridesAndPositional(t *testing.T) {
	cfg := Default()
	var out bytes.Buffer
	result, help, version, err := ParseArgs(cfg, []string{"-p", "3000", "-v", "-v", "login.example.com:2593"}, &out)
	require.NoError(t, err)
	assert.False(t, help)
	assert.False(t, version)
	assert.Equal(t, 3000, result.Port)
	assert.Equal(t, 2, result.Verbosity)
	assert.Equal(t, "login.example.com:2593", result.Server)
}

func TestParseArgsHelpAndVersion(t *testing.T) {
	var out bytes.Buffer
	_, help, _, err := ParseArgs(Default(), []string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, help)

	_, _, version, err := ParseArgs(Default(), []string{"-V"}, &out)
	require.NoError(t, err)
	assert.True(t, version)
}

func TestParseArgsQuietOverridesVerbosity(t *testing.T) {
	var out bytes.Buffer
	result, _, _, err := ParseArgs(Default(), []string{"-v", "-v", "-q"}, &out)
	require.NoError(t, err)
	assert.Equal(t, -1, result.Verbosity)
}
