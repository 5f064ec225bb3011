package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-api/internal/config"
	"github.com/kuitang/notes-api/internal/obs"
)

func TestRootCmd_HasSubcommandsAndFlags(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")

	for _, flag := range []string{"verbose", "port", "env-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.NotNil(t, cmd.RunE, "root command must default to serve")
}

func TestMigrate_InvalidConfigFailsBeforeConnecting(t *testing.T) {
	restore := obs.SetOutputForTests(io.Discard)
	defer restore()
	t.Setenv("DB_PORT", "70000")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	cmd.SetOut(io.Discard)
	err := cmd.ExecuteContext(context.Background())

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "DB_PORT")
}

func TestServe_UnreachableDatabaseIsFatal(t *testing.T) {
	restore := obs.SetOutputForTests(io.Discard)
	defer restore()
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve", "--port", "0", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLoadConfig_ReadsEnvFileAndPortFlag(t *testing.T) {
	restore := obs.SetOutputForTests(io.Discard)
	defer restore()
	t.Setenv("DB_NAME", "")
	require.NoError(t, os.Unsetenv("DB_NAME"))

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_NAME=from_file\n"), 0o600))

	cfg, err := loadConfig(&rootOptions{port: 8123, envFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, "from_file", cfg.DBName)
}

func TestServeUntilDone_ShutsDownOnCancel(t *testing.T) {
	restore := obs.SetOutputForTests(io.Discard)
	defer restore()

	srv := newHTTPServer("127.0.0.1:0", http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, srv, time.Second, obs.Pkg("test")) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
