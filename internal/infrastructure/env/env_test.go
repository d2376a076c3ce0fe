package env

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvService_Getters(t *testing.T) {
	t.Setenv("BRIDGE_SITE", "https://chat.example")
	t.Setenv("BRIDGE_HEADLESS", "false")
	t.Setenv("BRIDGE_BROKEN_BOOL", "maybe")
	t.Setenv("BRIDGE_PORT", "8080")
	t.Setenv("BRIDGE_BROKEN_INT", "eighty")

	e := &EnvService{}

	assert.Equal(t, "https://chat.example", e.Get("BRIDGE_SITE"))
	assert.Equal(t, "", e.Get("BRIDGE_UNSET"))
	assert.Equal(t, "https://chat.example", e.MustGet("BRIDGE_SITE"))

	assert.Equal(t, "https://chat.example", e.GetWithDefault("BRIDGE_SITE", "x"))
	assert.Equal(t, "x", e.GetWithDefault("BRIDGE_UNSET", "x"))

	assert.False(t, e.GetBool("BRIDGE_HEADLESS", true))
	assert.True(t, e.GetBool("BRIDGE_BROKEN_BOOL", true))
	assert.True(t, e.GetBool("BRIDGE_UNSET", true))

	assert.Equal(t, 8080, e.GetInt("BRIDGE_PORT", 5000))
	assert.Equal(t, 5000, e.GetInt("BRIDGE_BROKEN_INT", 5000))
}

func TestEnvService_GetDuration(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want time.Duration
	}{
		{"go duration", "90s", 90 * time.Second},
		{"minutes", "10m", 10 * time.Minute},
		{"bare seconds", "45", 45 * time.Second},
		{"garbage", "soon", time.Minute},
		{"unset", "", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BRIDGE_TIMEOUT", tt.val)
			assert.Equal(t, tt.want, (&EnvService{}).GetDuration("BRIDGE_TIMEOUT", time.Minute))
		})
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestEnvService_WarnsOnInvalidValues(t *testing.T) {
	t.Setenv("BRIDGE_TIMEOUT", "ten")
	t.Setenv("BRIDGE_PORT", "eighty")
	t.Setenv("BRIDGE_HEADLESS", "maybe")
	t.Setenv("BRIDGE_GOOD_TIMEOUT", "30s")

	buf := captureLog(t)
	e := &EnvService{}

	assert.Equal(t, 10*time.Minute, e.GetDuration("BRIDGE_TIMEOUT", 10*time.Minute))
	assert.Equal(t, 5000, e.GetInt("BRIDGE_PORT", 5000))
	assert.True(t, e.GetBool("BRIDGE_HEADLESS", true))

	out := buf.String()
	assert.Contains(t, out, `Warning: invalid value "ten" for BRIDGE_TIMEOUT, using default 10m0s`)
	assert.Contains(t, out, `invalid value "eighty" for BRIDGE_PORT, using default 5000`)
	assert.Contains(t, out, `invalid value "maybe" for BRIDGE_HEADLESS, using default true`)

	buf.Reset()
	assert.Equal(t, 30*time.Second, e.GetDuration("BRIDGE_GOOD_TIMEOUT", time.Minute))
	assert.Equal(t, time.Minute, e.GetDuration("BRIDGE_UNSET", time.Minute))
	assert.Empty(t, buf.String(), "valid and unset values are silent")
}
