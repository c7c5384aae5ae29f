package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BAN_STORE_DRIVER", "")
	c, err := Parse([]byte("server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", c.Server.Address())
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, BanStoreFile, c.Bans.Store)
	assert.Equal(t, time.Minute, c.Bans.Interval())
	assert.Equal(t, int64(500<<20), c.Uploads.QuotaBytes())
	assert.Equal(t, int64(1<<20), c.VoiceLog.MaxBytes)
	assert.False(t, c.PlayFab.Enabled())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "4100")
	t.Setenv("BAN_STORE_DRIVER", "database")
	t.Setenv("PLAYFAB_TITLE_ID", "ABCD")
	t.Setenv("PLAYFAB_SECRET_KEY", "secret")

	c, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 4100, c.Server.Port)
	assert.Equal(t, BanStoreDatabase, c.Bans.Store)
	assert.True(t, c.PlayFab.Enabled())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "server: ["},
		{name: "unknown driver", yaml: "database:\n  driver: oracle\n"},
		{name: "unknown ban store", yaml: "bans:\n  store: redis\n"},
		{name: "negative sweep", yaml: "bans:\n  sweep_interval: -5\n"},
		{name: "negative playfab timeout", yaml: "playfab:\n  timeout: -1\n"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestGeneratedDefaultConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	require.NoError(t, generateDefaultConfig(path))

	c, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3000, c.Server.Port)
	assert.Equal(t, "data/bans.json", c.Bans.File)
	assert.Equal(t, 10, c.RateLimit.Burst)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
