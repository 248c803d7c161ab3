package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pointpack server and CLI.
type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Package PackageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	BodyLimit int64 // Maximum request body size in bytes
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type CatalogConfig struct {
	Dir string // Directory holding FlatGeobuf layers
}

type PackageConfig struct {
	Compress bool // Compress packages unless the request says otherwise
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load loads configuration from defaults, an optional config file and
// POINTPACK_* environment variables. With an empty path, pointpack.{toml,yaml,...}
// is looked up in the working directory and /etc/pointpack/; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("POINTPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pointpack")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pointpack/")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	bodyLimit, err := ParseSize(v.GetString("server.body_limit"))
	if err != nil {
		return nil, fmt.Errorf("invalid server.body_limit: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:      v.GetString("server.host"),
			Port:      v.GetInt("server.port"),
			BodyLimit: bodyLimit,
		},
		Catalog: CatalogConfig{
			Dir: v.GetString("catalog.dir"),
		},
		Package: PackageConfig{
			Compress: v.GetBool("package.compress"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}
	if cfg.Catalog.Dir == "" {
		return nil, fmt.Errorf("catalog.dir must not be empty")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", "64MB")

	v.SetDefault("catalog.dir", "./data/layers")

	v.SetDefault("package.compress", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ParseSize parses a human-readable size string (e.g., "1GB", "500MB", "100KB") to bytes.
// Supports: B, KB, MB, GB (case-insensitive). A bare number is a byte count.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	units := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	numStr, multiplier := sizeStr, int64(1)
	for _, unit := range units {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			numStr = strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))
			multiplier = unit.multiplier
			break
		}
	}

	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
	}
	return int64(num * float64(multiplier)), nil
}
