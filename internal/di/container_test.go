package di

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"chat-bridge/internal/domain/entity"
	"chat-bridge/internal/infrastructure/logger"
	"chat-bridge/internal/usecase/exchange"
	"chat-bridge/internal/usecase/exchange/exchangetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapConfig map[string]string

func (m mapConfig) Get(key string) string { return m[key] }

func (m mapConfig) MustGet(key string) string { return m[key] }

func (m mapConfig) GetWithDefault(key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}

func (m mapConfig) GetBool(key string, def bool) bool {
	v, err := strconv.ParseBool(m[key])
	if err != nil {
		return def
	}
	return v
}

func (m mapConfig) GetInt(key string, def int) int {
	v, err := strconv.Atoi(m[key])
	if err != nil {
		return def
	}
	return v
}

func (m mapConfig) GetDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(m[key])
	if err != nil {
		return def
	}
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(mapConfig{"SITE": "https://chat.example/app", "USER_DATA_DIR": "/profiles/bridge"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 5000, cfg.Port)
	assert.True(t, cfg.BrowserHeadless)
	assert.True(t, cfg.BrowserStealth)
	assert.Equal(t, exchange.PolicyQueue, cfg.QueuePolicy)
	assert.Zero(t, cfg.QueueMaxWait)
	assert.Equal(t, 10*time.Minute, cfg.CompletionTimeout)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ElementTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.AttachmentAllowPaths, "server-local paths stay off unless enabled")
	assert.Equal(t, 4096, cfg.AttachmentMaxDimension)
	assert.Equal(t, 64_000_000, cfg.AttachmentMaxPixels)
	assert.Equal(t, 250*time.Millisecond, cfg.poller().Interval)
	assert.Equal(t, 2*time.Second, cfg.poller().MaxInterval)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(mapConfig{
		"SITE":                   "https://chat.example/app",
		"USER_DATA_DIR":          "/profiles/bridge",
		"PORT":                   "8080",
		"QUEUE_POLICY":           "Reject",
		"COMPLETION_TIMEOUT":     "90s",
		"CORS_ORIGINS":           "https://a.example, https://b.example,",
		"HEADLESS":               "false",
		"ATTACHMENT_ALLOW_PATHS": "true",
		"ATTACHMENT_MAX_PIXELS":  "1000000",
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, exchange.PolicyReject, cfg.QueuePolicy)
	assert.Equal(t, 90*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.BrowserHeadless)
	assert.True(t, cfg.AttachmentAllowPaths)
	assert.Equal(t, 1_000_000, cfg.AttachmentMaxPixels)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  mapConfig
		want string
	}{
		{"missing both", mapConfig{}, "SITE, USER_DATA_DIR"},
		{"missing profile", mapConfig{"SITE": "https://chat.example"}, "USER_DATA_DIR"},
		{"bad policy", mapConfig{"SITE": "x", "USER_DATA_DIR": "y", "QUEUE_POLICY": "lifo"}, "queue policy"},
		{"bad port", mapConfig{"SITE": "x", "USER_DATA_DIR": "y", "PORT": "70000"}, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.env)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Host:              "127.0.0.1",
		Port:              0,
		QueuePolicy:       exchange.PolicyQueue,
		CompletionTimeout: time.Second,
		UploadTimeout:     time.Second,
		PollInterval:      time.Millisecond,
		PollMaxInterval:   2 * time.Millisecond,
		UploadDir:         t.TempDir(),
		DiagnosticsDir:    t.TempDir(),
	}
}

func TestAssemble_ServesExchanges(t *testing.T) {
	session := exchangetest.NewFakeSession()
	c, err := assemble(testConfig(t), logger.NewNop(), session)
	require.NoError(t, err)

	srv := httptest.NewServer(c.Server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	outcome, err := c.Exchange.Submit(context.Background(), entity.QueryRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "reply to hi", outcome.Response)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAssemble_RejectsOversizedImage(t *testing.T) {
	session := exchangetest.NewFakeSession()
	cfg := testConfig(t)
	c, err := assemble(cfg, logger.NewNop(), session)
	require.NoError(t, err)

	srv := httptest.NewServer(c.Server.Handler())
	defer srv.Close()

	// A 1x1 PNG whose header claims 50000x50000.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], 50000)
	binary.BigEndian.PutUint32(data[20:24], 50000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	body, err := json.Marshal(map[string]string{
		"query": "describe",
		"image": base64.StdEncoding.EncodeToString(data),
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/img", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "error", out["status"])
	assert.Contains(t, out["message"], "50000x50000")

	assert.Empty(t, session.Uploads())
	assert.Empty(t, session.Ops(), "the page must not be touched")
}

func TestContainer_RunStopsWhenSessionDies(t *testing.T) {
	session := exchangetest.NewFakeSession()
	c, err := assemble(testConfig(t), logger.NewNop(), session)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	session.Kill()
	_, err = c.Exchange.Submit(context.Background(), entity.QueryRequest{Text: "hi"})
	require.ErrorIs(t, err, entity.ErrSessionUnavailable)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrSessionUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the session died")
	}
}

func TestContainer_RunStopsOnCancel(t *testing.T) {
	c, err := assemble(testConfig(t), logger.NewNop(), exchangetest.NewFakeSession())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
