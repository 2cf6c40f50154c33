package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"restaurant-menu/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := NewViper()
	v.Set("session.secret", "s3cret")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, gin.ReleaseMode, cfg.GinMode)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "sessionid", cfg.SessionCookie)
	assert.Equal(t, "db", cfg.SessionBackend)
	assert.Equal(t, 5, cfg.LoginBurst)
	assert.False(t, cfg.ExemptOwnEmail)
	assert.Equal(t, []byte("s3cret"), cfg.SessionSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MENU_SESSION_SECRET", "from-env")
	t.Setenv("MENU_SESSION_TTL", "2h")
	t.Setenv("MENU_SESSION_BACKEND", "redis")
	t.Setenv("MENU_PROFILE_EXEMPT_OWN_EMAIL", "true")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, []byte("from-env"), cfg.SessionSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.True(t, cfg.ExemptOwnEmail)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{"missing secret outside debug", map[string]interface{}{}},
		{"unknown backend", map[string]interface{}{"session.secret": "x", "session.backend": "memcached"}},
		{"zero ttl", map[string]interface{}{"session.secret": "x", "session.ttl": "0s"}},
		{"bcrypt cost", map[string]interface{}{"session.secret": "x", "auth.bcrypt_cost": 99}},
		{"burst", map[string]interface{}{"session.secret": "x", "auth.login_burst": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestLoadDebugUsesDevSecret(t *testing.T) {
	v := NewViper()
	v.Set("gin.mode", gin.DebugMode)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []byte(devSecret), cfg.SessionSecret)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MENU_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MENU_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("MENU_TEST_DOTENV"))
}

func TestInitDB(t *testing.T) {
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	for _, m := range []interface{}{&models.User{}, &models.Restaurant{}, &models.FoodItem{}, &models.Session{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
