package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okian/cuerank/pkg/logger"
)

func TestMigrateCLI(t *testing.T) {
	require.NoError(t, logger.Init(logger.WithOutput(io.Discard)))

	t.Run("lists the commands", func(t *testing.T) {
		app := newApp()
		var out bytes.Buffer
		app.Writer = &out
		require.NoError(t, app.Run([]string{"migrate", "--help"}))
		for _, cmd := range []string{"init", "up", "rollback", "status", "create_go"} {
			require.Contains(t, out.String(), cmd)
		}
	})

	t.Run("create_go requires a name", func(t *testing.T) {
		app := newApp()
		app.Writer = io.Discard
		err := app.Run([]string{"migrate", "create_go"})
		require.ErrorContains(t, err, "migration name is required")
	})

	t.Run("an unreachable database fails", func(t *testing.T) {
		app := newApp()
		app.Writer = io.Discard
		err := app.Run([]string{"migrate", "--dsn", "postgres://nobody:x@127.0.0.1:1/none?sslmode=disable", "status"})
		require.Error(t, err)
	})
}
