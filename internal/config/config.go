package config

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"assignado/internal/domain/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Addr             string        `mapstructure:"addr"`
	Port             int           `mapstructure:"port"`
	Storage          string        `mapstructure:"storage"`
	DBStr            string        `mapstructure:"db_str"`
	MongoURI         string        `mapstructure:"mongo_uri"`
	MongoDB          string        `mapstructure:"mongo_db"`
	MigratePath      string        `mapstructure:"migrate_path"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AdminInviteToken string        `mapstructure:"admin_invite_token"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFile          string        `mapstructure:"log_file"`
	LogJSON          bool          `mapstructure:"log_json"`
}

const (
	defaultAddr        = "0.0.0.0"
	defaultPort        = 8080
	defaultDBStr       = "postgresql://shouldbeinVaultuser:shouldbeinVaultpassword@db:5432/tasks?sslmode=disable"
	defaultMongoURI    = "mongodb://localhost:27017"
	defaultMongoDB     = "assignado"
	defaultMigratePath = "migrations"
	defaultJWTSecret   = "shouldbeinVaultsecret"
)

func defaults(v *viper.Viper) {
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("port", defaultPort)
	v.SetDefault("storage", StorageMongo)
	v.SetDefault("db_str", defaultDBStr)
	v.SetDefault("mongo_uri", defaultMongoURI)
	v.SetDefault("mongo_db", defaultMongoDB)
	v.SetDefault("migrate_path", defaultMigratePath)
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("admin_invite_token", "")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("store_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_json", false)
}

// flag name -> config key
var flagKeys = map[string]string{
	"addr":         "addr",
	"port":         "port",
	"storage":      "storage",
	"db-str":       "db_str",
	"mongo-uri":    "mongo_uri",
	"mongo-db":     "mongo_db",
	"migrate-path": "migrate_path",
	"log-level":    "log_level",
	"log-file":     "log_file",
}

// AddFlags registers the overrides that Load understands.
func AddFlags(set *pflag.FlagSet) {
	set.StringP("config", "c", "", "path to a JSON or YAML config file")
	set.String("addr", defaultAddr, "listen address")
	set.Int("port", defaultPort, "listen port")
	set.String("storage", StorageMongo, "storage backend: mongo, postgres or memory")
	set.String("db-str", defaultDBStr, "PostgreSQL connection string")
	set.String("mongo-uri", defaultMongoURI, "MongoDB connection URI")
	set.String("mongo-db", defaultMongoDB, "MongoDB database name")
	set.String("migrate-path", defaultMigratePath, "directory with SQL migrations")
	set.String("log-level", "info", "log level")
	set.String("log-file", "", "also write logs to this file")
}

// Load merges, from lowest to highest precedence: defaults, the config file,
// .env, the environment and explicitly set flags. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %v", errors.ErrConfigParseFailed, err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("%w: flag %s: %v", errors.ErrConfigParseFailed, name, err)
				}
			}
		}
	}

	path := os.Getenv("CONFIG")
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w %s: %v", errors.ErrConfigFileReadFailed, path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfigInvalidFormat, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", errors.ErrConfigInvalidFormat, c.Port)
	}
	switch c.Storage {
	case StorageMongo, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownStorage, c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt secret is empty", errors.ErrConfigInvalidFormat)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", errors.ErrConfigInvalidFormat)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("%w: store timeout must be positive", errors.ErrConfigInvalidFormat)
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}
