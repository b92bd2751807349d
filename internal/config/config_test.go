package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "./data/mintgate.db", cfg.Store.Path)
	assert.Equal(t, "./data/assets.db", cfg.Asset.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddress())
	assert.Equal(t, "mintgate:events", cfg.Redis.EventChannel)
	assert.True(t, cfg.App.IsDevelopment())
	assert.Nil(t, cfg.Auth.Keys())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_TYPE", "mysql")
	t.Setenv("STORE_DB_HOST", "db.internal")
	t.Setenv("STORE_DB_PASS", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_KEYS", "key-one, key-two")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, "mysql", cfg.Store.Type)
	assert.Equal(t, "root:secret@tcp(db.internal:3306)/mintgate?parseTime=true", cfg.Store.MySQLDSN())
	assert.False(t, cfg.App.IsDevelopment())
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.Keys())
}
