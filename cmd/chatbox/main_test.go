package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/chatbox/internal/config"
)

func TestParseCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader("Hi there! [mood: 55] [button: Tell me more]"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"parse"})
	require.NoError(t, cmd.Execute())

	var got struct {
		Text   string  `json:"text"`
		Button *string `json:"button"`
		Mood   *int    `json:"mood"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Hi there!", got.Text)
	require.NotNil(t, got.Button)
	assert.Equal(t, "Tell me more", *got.Button)
	require.NotNil(t, got.Mood)
	assert.Equal(t, 55, *got.Mood)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func testConfig(backend string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: backend},
		LLM:     config.LLMConfig{Provider: "echo", MaxTokens: 100},
		Auth:    config.AuthConfig{Enabled: true, SessionTTL: time.Hour},
	}
}

func TestBuild(t *testing.T) {
	sqliteCfg := testConfig("sqlite")
	sqliteCfg.Storage.SQLite = config.SQLiteConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "chat.db")}

	authFileCfg := testConfig("memory")
	authFileCfg.Storage.SQLite.Driver = "sqlite"
	authFileCfg.Auth.SQLitePath = filepath.Join(t.TempDir(), "auth.db")

	openCfg := testConfig("memory")
	openCfg.Auth.Enabled = false

	tests := []struct {
		name       string
		cfg        *config.Config
		wantStatus int
	}{
		{"sqlite store shares its database with auth", sqliteCfg, http.StatusUnauthorized},
		{"memory store with auth database", authFileCfg, http.StatusUnauthorized},
		{"memory store with memory sessions", testConfig("memory"), http.StatusUnauthorized},
		{"auth disabled", openCfg, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := build(context.Background(), tt.cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, a.Close()) })

			w := httptest.NewRecorder()
			a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/getconversations", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			w = httptest.NewRecorder()
			a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestBuildMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := testConfig("memory")
	cfg.LLM.Provider = "anthropic"

	_, err := build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zaptest.NewLogger(t)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
