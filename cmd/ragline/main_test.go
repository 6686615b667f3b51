package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"ingest", "seed", "search", "ask", "clear", "reembed", "serve"} {
		cmd := findCommand(t, app, name)
		assert.NotNil(t, cmd.Action, name)
	}
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "ingest")

	names := map[string]bool{}
	for _, flag := range cmd.Flags {
		for _, n := range flag.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"limit", "clear-old", "chunk-max-length", "batch-size", "concurrency"} {
		assert.True(t, names[want], want)
	}

	t.Run("clear-old defaults to false", func(t *testing.T) {
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "clear-old" {
				assert.False(t, f.Value)
				return
			}
		}
		t.Fatal("clear-old flag missing")
	})
}

func TestSearchCommandLimitDefault(t *testing.T) {
	cmd := findCommand(t, newApp(), "search")
	var limit *cli.IntFlag
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == "limit" {
			limit = f
		}
	}
	require.NotNil(t, limit)
	assert.Equal(t, 5, limit.Value)
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"ragline", "--env-file", "", "search"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestAskCommandRequiresQuestion(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"ragline", "--env-file", "", "ask", "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question")
}

func TestIngestCommandRejectsNegative(t *testing.T) {
	dir := t.TempDir()
	app := newApp()
	err := app.Run([]string{"ragline", "--env-file", "", "--config", filepath.Join(dir, "missing.yaml"),
		"ingest", "--batch-size", "-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestSetupLoadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("RAGLINE_TEST_VALUE=loaded\n"), 0o600))
	t.Setenv("RAGLINE_TEST_VALUE", "")
	os.Unsetenv("RAGLINE_TEST_VALUE")

	app := &cli.App{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "env-file"},
		},
		Before: setup,
		Action: func(c *cli.Context) error { return nil },
	}
	require.NoError(t, app.Run([]string{"test", "--env-file", envPath}))
	assert.Equal(t, "loaded", os.Getenv("RAGLINE_TEST_VALUE"))

	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, app.Run([]string{"test", "--env-file", filepath.Join(dir, "absent.env")}))
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: level},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		err := app.Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
