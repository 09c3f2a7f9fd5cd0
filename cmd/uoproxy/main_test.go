package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/config"
)

func noFileConfig() (config.Config, error) {
	return config.Default(), nil
}

func TestParseCLIHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	_, code, handled := parseCLI([]string{"-h"}, &out, &errOut, noFileConfig)
	assert.True(t, handled)
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, out.String(), "usage: uoproxy")
}

func TestParseCLIVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	_, code, handled := parseCLI([]string{"-V"}, &out, &errOut, noFileConfig)
	assert.True(t, handled)
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, out.String(), "uoproxy")
}

func TestParseCLIAppliesFlagsAndContinues(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg, code, handled := parseCLI([]string{"-p", "3000", "login.example.com:2593"}, &out, &errOut, noFileConfig)
	assert.False(t, handled)
	assert.Equal(t, config.ExitOK, code)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "login.example.com:2593", cfg.Server)
}

func TestParseCLIConfigLoadError(t *testing.T) {
	var out, errOut bytes.Buffer
	_, code, handled := parseCLI(nil, &out, &errOut, func() (config.Config, error) {
		return config.Config{}, assertErr
	})
	assert.True(t, handled)
	assert.Equal(t, config.ExitConfig, code)
	require.NotEmpty(t, errOut.String())
}

var assertErr = errFixture("boom")

type errFixture string

func (e errFixture) Error() string { return string(e) }
