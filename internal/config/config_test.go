package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg := Load()

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, int64(20<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 1600, cfg.CoverMaxWidth)
	assert.Empty(t, cfg.S3Bucket)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("SEED_ON_START", "true")
	t.Setenv("LOGIN_RATE_LIMIT", "not-a-number")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_REGION", "eu-west-1")
	t.Setenv("S3_BUCKET", "portal")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7,bogus, fd00::1")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.SeedOnStart)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.Equal(t, "portal", cfg.S3Bucket)
	assert.Equal(t, "", cfg.S3Endpoint)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("fd00::1/128"),
	}, cfg.TrustedProxies)
}
