package configs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := LoadConfig()

	req.NoError(err)
	req.Equal("development", cfg.Environment)
	req.Equal(8080, cfg.Port)
	req.Empty(cfg.AllowedOrigins)
	req.NotEmpty(cfg.JWTSecret)
	req.NotEmpty(cfg.DatabaseDSN)
	req.Equal("localhost:6379", cfg.RedisAddr)
	req.Equal(0, cfg.RedisDB)
}

func TestLoadConfig_ParsesOriginsList(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")

	cfg, err := LoadConfig()

	req.NoError(err)
	req.Equal([]string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_ProductionRequiresSecrets(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("REDIS_ADDR", "redis:6379")

	_, err := LoadConfig()
	req.Error(err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")

	_, err = LoadConfig()
	req.Error(err)

	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("REDIS_ADDR", "")

	_, err = LoadConfig()
	req.Error(err)
}

func TestLoadConfig_RejectsBadPort(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "80")

	_, err := LoadConfig()
	req.Error(err)

	t.Setenv("PORT", "not-a-port")

	_, err = LoadConfig()
	req.Error(err)
}
