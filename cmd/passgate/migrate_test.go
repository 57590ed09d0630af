// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/pkg/errutil"
)

func TestMigrateCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewMigrateCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"up", "down", "status"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down", "status"} {
		t.Run(sub, func(t *testing.T) {
			migrateDBURL = ""

			cmd := NewMigrateCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs([]string{sub})

			err := cmd.Execute()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestMigrateDatabaseURL_Flag(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	migrateDBURL = ""

	cmd := NewMigrateCmd()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--database-url", "postgres://localhost/passgate"}))

	url, err := migrateDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/passgate", url)
}

func TestMigrateDatabaseURL_EnvFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/passgate")
	migrateDBURL = ""

	url, err := migrateDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/passgate", url)
}
