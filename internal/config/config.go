package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core paths
	DataDir  string `yaml:"data_dir"`
	ThumbDir string `yaml:"thumb_dir"`

	// Editor settings
	Editor EditorConfig `yaml:"editor"`

	// Export settings
	Export ExportConfig `yaml:"export"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

type EditorConfig struct {
	PreviewWidth  int    `yaml:"preview_width"`
	PreviewHeight int    `yaml:"preview_height"`
	Language      string `yaml:"language"`
}

type ExportConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
}

type FFmpegConfig struct {
	Threads int `yaml:"threads"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LibraryPath is the sqlite project library location
func (c *Config) LibraryPath() string {
	return filepath.Join(c.DataDir, "library.db")
}

func defaultConfig() *Config {
	dataDir := "./data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".kawaiicut")
	}
	return &Config{
		DataDir:  dataDir,
		ThumbDir: filepath.Join(dataDir, "thumbs"),
		Editor: EditorConfig{
			PreviewWidth:  1280,
			PreviewHeight: 720,
			Language:      "en",
		},
		Export: ExportConfig{
			Width:  1920,
			Height: 1080,
			FPS:    30,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".kawaiicut", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
