package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	for _, env := range []string{EnvDocBuild, EnvAddr, EnvRedisAddr, EnvLogLevel} {
		os.Unsetenv(env)
	}
	for _, test := range []struct {
		name string
		file string
		env  map[string]string
		want *Config
	}{
		{
			name: "defaults",
			want: Default(),
		},
		{
			name: "file",
			file: `
info:
  title: Archive API
  version: 2.0.0
servers:
  - https://archive.softwareheritage.org
apiVersion: "2"
redisAddr: localhost:6379
cacheTTL: 10m
logLevel: debug
`,
			want: &Config{
				Info:             &openapi3.Info{Title: "Archive API", Version: "2.0.0"},
				Servers:          []string{"https://archive.softwareheritage.org"},
				APIVersion:       "2",
				ReservedCategory: "Miscellaneous",
				Addr:             "localhost:8080",
				RedisAddr:        "localhost:6379",
				CacheTTL:         10 * time.Minute,
				LogLevel:         "debug",
			},
		},
		{
			name: "environment wins",
			file: "addr: localhost:9000\n",
			env:  map[string]string{EnvAddr: ":8000", EnvDocBuild: "", EnvLogLevel: "error"},
			want: func() *Config {
				c := Default()
				c.Addr = ":8000"
				c.LogLevel = "error"
				c.DocBuild = true
				return c
			}(),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if test.file != "" {
				dir = writeConfig(t, test.file)
			}
			got, err := Load(dir)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	for _, file := range []string{
		"info: [not, a, map]\n",
		"apiVersion: \"\"\n",
	} {
		if _, err := Load(writeConfig(t, file)); err == nil {
			t.Errorf("Load(%q): got nil error", file)
		}
	}
}
