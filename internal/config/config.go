// Package config loads the settings of the apidoc command from a project's
// .apidoc.yaml file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file at the project root.
const FileName = ".apidoc.yaml"

// Environment variables overriding the configuration file.
const (
	EnvDocBuild  = "SWH_DOC_BUILD"
	EnvAddr      = "APIDOC_ADDR"
	EnvRedisAddr = "APIDOC_REDIS_ADDR"
	EnvLogLevel  = "APIDOC_LOG_LEVEL"
)

type Config struct {
	// Info is the info object of generated OpenAPI documents.
	Info *openapi3.Info `yaml:"info"`
	// Servers are the server URLs of generated OpenAPI documents.
	Servers []string `yaml:"servers"`

	APIVersion       string        `yaml:"apiVersion"`
	ReservedCategory string        `yaml:"reservedCategory"`
	Addr             string        `yaml:"addr"`
	RedisAddr        string        `yaml:"redisAddr"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
	LogLevel         string        `yaml:"logLevel"`

	// DocBuild skips the parsing of httpdomain docstrings, as when
	// building the documentation of the application itself.
	DocBuild bool `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Info: &openapi3.Info{
			Title:   "Software Heritage Web API",
			Version: "1.0.0",
		},
		APIVersion:       "1",
		ReservedCategory: "Miscellaneous",
		Addr:             "localhost:8080",
		CacheTTL:         time.Hour,
	}
}

// Load returns the default configuration overlaid with
// <projectPath>/.apidoc.yaml, if it exists, and then with the environment.
func Load(projectPath string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(projectPath, FileName)
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %v", configPath, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if _, ok := os.LookupEnv(EnvDocBuild); ok {
		cfg.DocBuild = true
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if cfg.Info == nil {
		cfg.Info = Default().Info
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("%s: apiVersion must not be empty", configPath)
	}
	return cfg, nil
}
