// Package config loads figflow settings from a YAML (or JSON) file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file read when no --config flag is given.
const DefaultPath = "figflow.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Duration is a time.Duration written as a Go duration string ("10ms", "1m").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// APIConfig locates the transformation service.
type APIConfig struct {
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	ProcessPath string   `yaml:"process_path" json:"process_path"`
	UploadPath  string   `yaml:"upload_path" json:"upload_path"`
	Timeout     Duration `yaml:"timeout" json:"timeout"`
}

type WriteBackConfig struct {
	Delay Duration `yaml:"delay" json:"delay"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// StoreConfig selects where documents live.
type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind"`
	Path string `yaml:"path" json:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// BackendConfig configures the bundled reference transformation service.
type BackendConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config is the whole settings file.
type Config struct {
	API       APIConfig       `yaml:"api" json:"api"`
	WriteBack WriteBackConfig `yaml:"writeback" json:"writeback"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:     "http://localhost:5000",
			ProcessPath: "/api/process",
			UploadPath:  "/api/upload",
			Timeout:     Duration(60 * time.Second),
		},
		WriteBack: WriteBackConfig{Delay: Duration(10 * time.Millisecond)},
		Server:    ServerConfig{Addr: ":8080"},
		Store:     StoreConfig{Kind: StoreMemory, Path: "."},
		Redis:     RedisConfig{Addr: "localhost:6379", Prefix: "figflow:"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Backend:   BackendConfig{Addr: ":5000"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Files ending in .json are parsed as JSON, anything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.WriteBack.Delay < 0 {
		return fmt.Errorf("writeback.delay must not be negative")
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("store.kind %q is not one of memory, file, redis", c.Store.Kind)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}
	return nil
}
