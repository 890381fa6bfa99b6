package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const envFileVar = "ENV_FILE"

var (
	mu          sync.Mutex
	envFilePath string
	exported    = map[string]bool{}
)

// SetEnvFile selects the .env file read by later New calls. An empty path
// falls back to $ENV_FILE and then to ./.env when present.
func SetEnvFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	envFilePath = strings.TrimSpace(path)
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func resolveEnvPath() string {
	if envFilePath != "" {
		return envFilePath
	}
	return strings.TrimSpace(os.Getenv(envFileVar))
}

// loadEnvFile exports each env file at most once per process.
func loadEnvFile() error {
	mu.Lock()
	defer mu.Unlock()

	filepath := resolveEnvPath()
	if filepath != "" {
		if exported[filepath] {
			return nil
		}
		if err := exportEnvironment(filepath); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		exported[filepath] = true
		return nil
	}

	if exported[".env"] {
		return nil
	}
	if err := exportEnvironmentIfExists(".env"); err != nil {
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	exported[".env"] = true
	return nil
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

// exportEnvironment copies the file into the process environment without
// overriding variables that are already set.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
