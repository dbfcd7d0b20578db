package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderConfig controls where Load looks for config and env files.
type LoaderConfig struct {
	// ConfigFile is an explicit path to a config.yml. Empty means search.
	ConfigFile string
	// EnvFile is an explicit path to a .env file. Empty means search.
	EnvFile string
}

// Load populates cfg for the named service: .env files first (so viper's env
// binding sees them), then config.yml, then environment overrides. Missing
// files are not an error; env variables alone are a valid configuration.
func Load(serviceName string, cfg Config, opts ...LoaderConfig) error {
	var lc LoaderConfig
	if len(opts) > 0 {
		lc = opts[0]
	}

	loadEnvFiles(serviceName, lc.EnvFile)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = findConfigFile(serviceName)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GetServiceConfig().Name == "" {
		cfg.GetServiceConfig().Name = serviceName
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

func loadEnvFiles(serviceName, explicit string) {
	if explicit != "" {
		_ = godotenv.Load(explicit)
		return
	}
	for _, path := range []string{
		fmt.Sprintf(".env.%s", serviceName),
		".env",
		"../.env",
	} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// findConfigFile searches for config.yml in standard locations relative to
// the working directory of the service binary.
func findConfigFile(serviceName string) string {
	searchPaths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
