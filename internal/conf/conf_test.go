package conf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	var bc Bootstrap
	raw := `{
		"server": {"http": {"addr": "0.0.0.0:8000", "timeout": "1.5s"}},
		"data": {"database": {"driver": "sqlite3", "slow_threshold": 2}, "cache": {"ttl": "30s"}},
		"geo": {"default_radius": 750}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &bc))
	assert.Equal(t, 1500*time.Millisecond, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, 2*time.Second, bc.Data.Database.SlowThreshold.AsDuration())
	assert.Equal(t, 30*time.Second, bc.Data.Cache.Ttl.AsDuration())
	assert.Equal(t, 750.0, bc.Geo.DefaultRadius)
	assert.Zero(t, bc.Geo.IntersectBuffer)
}

func TestDurationInvalid(t *testing.T) {
	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	var missing *Duration
	assert.Zero(t, missing.AsDuration())
}

func TestLoadResolvesEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http:
    addr: "${HTTP_ADDR:0.0.0.0:8000}"
    timeout: 2s
data:
  database:
    driver: "${DB_DRIVER:sqlite3}"
    source: "${DB_SOURCE:places.db}"
geo:
  limit: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv(EnvPrefix+"DB_SOURCE", "/var/lib/geoplaces/places.db")

	bc, cleanup, err := Load(dir)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "0.0.0.0:8000", bc.Server.Http.Addr)
	assert.Equal(t, 2*time.Second, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, "sqlite3", bc.Data.Database.Driver)
	assert.Equal(t, "/var/lib/geoplaces/places.db", bc.Data.Database.Source)
	assert.Equal(t, 5, bc.Geo.Limit)
	assert.NotNil(t, bc.Data.Cache)
	assert.Nil(t, bc.Server.RateLimit)
}

func TestShippedConfigDisablesCache(t *testing.T) {
	bc, cleanup, err := Load("../../configs/config.yaml")
	require.NoError(t, err)
	defer cleanup()

	assert.Zero(t, bc.Data.Cache.Ttl.AsDuration())
	assert.Equal(t, "sqlite3", bc.Data.Database.Driver)
}
