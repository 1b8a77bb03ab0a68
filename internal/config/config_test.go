package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/auth?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "auth", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 1, cfg.RefreshTokenMonths)
	assert.Equal(t, 0, cfg.MaxActiveRefreshTokens)
	assert.Equal(t, 10, cfg.AccountTokenAttempts)
	assert.Equal(t, "user_events", cfg.KafkaTopic)
	assert.Nil(t, cfg.KafkaBrokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "pq")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("MAX_ACTIVE_REFRESH_TOKENS", "5")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "pq", cfg.DBDriver)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.MaxActiveRefreshTokens)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.TrustedProxies)
}

func TestFromEnv_SQLiteDefaultsPath(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "auth.db", cfg.DatabaseURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"JWT_SECRET": "", "DATABASE_URL": "postgres://localhost/auth"},
			want: "JWT_SECRET",
		},
		{
			name: "missing database url",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": ""},
			want: "DATABASE_URL",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": "x", "DB_DRIVER": "mysql"},
			want: "DB_DRIVER",
		},
		{
			name: "bcrypt cost too low",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": "x", "BCRYPT_COST": "3"},
			want: "BCRYPT_COST",
		},
		{
			name: "zero refresh months",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": "x", "REFRESH_TOKEN_MONTHS": "0"},
			want: "REFRESH_TOKEN_MONTHS",
		},
		{
			name: "negative cap",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": "x", "MAX_ACTIVE_REFRESH_TOKENS": "-1"},
			want: "MAX_ACTIVE_REFRESH_TOKENS",
		},
		{
			name: "malformed ttl",
			env:  map[string]string{"JWT_SECRET": "secret", "DATABASE_URL": "x", "ACCESS_TOKEN_TTL": "soon"},
			want: "parse env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVICE_NAME=auth-from-file\n"), 0o600))

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	// registered so t.Setenv restores the original state after godotenv sets it
	t.Setenv("SERVICE_NAME", "")
	require.NoError(t, os.Unsetenv("SERVICE_NAME"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "auth-from-file", cfg.ServiceName)
}

func TestLoad_MissingFileIsNotFatal(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
