package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assignado/internal/domain/errors"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	set := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(set)
	require.NoError(t, set.Parse(args))
	return set
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("port: 9000\nstorage: postgres\nlog_level: debug\n"), 0o600))

	tests := []struct {
		name string
		env  map[string]string
		args []string
		want struct {
			port    int
			storage string
			level   string
			ttl     time.Duration
			err     error
		}
	}{
		{
			name: "defaults",
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{port: 8080, storage: StorageMongo, level: "info", ttl: 7 * 24 * time.Hour},
		},
		{
			name: "environment overrides defaults",
			env:  map[string]string{"PORT": "9090", "STORAGE": "memory", "TOKEN_TTL": "1h"},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{port: 9090, storage: StorageMemory, level: "info", ttl: time.Hour},
		},
		{
			name: "config file is read",
			args: []string{"-c", yamlPath},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{port: 9000, storage: StoragePostgres, level: "debug", ttl: 7 * 24 * time.Hour},
		},
		{
			name: "flags win over file and environment",
			env:  map[string]string{"PORT": "9090"},
			args: []string{"-c", yamlPath, "--port", "7000", "--storage", "memory"},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{port: 7000, storage: StorageMemory, level: "debug", ttl: 7 * 24 * time.Hour},
		},
		{
			name: "port out of range",
			env:  map[string]string{"PORT": "70000"},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{err: errors.ErrConfigInvalidFormat},
		},
		{
			name: "unknown storage",
			args: []string{"--storage", "cassandra"},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{err: errors.ErrUnknownStorage},
		},
		{
			name: "missing config file",
			args: []string{"-c", filepath.Join(dir, "missing.yaml")},
			want: struct {
				port    int
				storage string
				level   string
				ttl     time.Duration
				err     error
			}{err: errors.ErrConfigFileReadFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(newFlags(t, tt.args...))

			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.port, cfg.Port)
			assert.Equal(t, tt.want.storage, cfg.Storage)
			assert.Equal(t, tt.want.level, cfg.LogLevel)
			assert.Equal(t, tt.want.ttl, cfg.TokenTTL)
			assert.Equal(t, 15*time.Second, cfg.StoreTimeout)
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Addr: "127.0.0.1", Port: 8081}
	assert.Equal(t, "127.0.0.1:8081", cfg.ListenAddr())
}
