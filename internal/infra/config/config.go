package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type DownloadConfig struct {
	Dir           string  `mapstructure:"dir" yaml:"dir"`
	MaxConcurrent int     `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	MaxAttempts   int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	GraceSeconds  int     `mapstructure:"grace_seconds" yaml:"grace_seconds"`
	YTDLPPath     string  `mapstructure:"ytdlp_path" yaml:"ytdlp_path"`
	RateLimitMBps float64 `mapstructure:"rate_limit_mbps" yaml:"rate_limit_mbps"`
	KeepPartial   bool    `mapstructure:"keep_partial" yaml:"keep_partial"`
}

// DefaultsConfig supplies per-job options when an add request leaves them
// blank. Changing these never touches jobs already in the queue.
type DefaultsConfig struct {
	Quality      string `mapstructure:"quality" yaml:"quality"`
	Format       string `mapstructure:"format" yaml:"format"`
	AudioQuality string `mapstructure:"audio_quality" yaml:"audio_quality"`
	Subtitles    bool   `mapstructure:"subtitles" yaml:"subtitles"`
	SubtitleLang string `mapstructure:"subtitle_lang" yaml:"subtitle_lang"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8090")
	v.SetDefault("download.dir", "./downloads")
	v.SetDefault("download.max_concurrent", 3)
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.grace_seconds", 3)
	v.SetDefault("download.ytdlp_path", "yt-dlp")
	v.SetDefault("defaults.quality", "best")
	v.SetDefault("defaults.format", "mp4")
	v.SetDefault("defaults.audio_quality", "best")
	v.SetDefault("defaults.subtitles", true)
	v.SetDefault("defaults.subtitle_lang", "en")
	v.SetDefault("log.path", "videoteka.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.sqlite_path", "videoteka.db")

	// The config file is optional: defaults plus environment variables are
	// enough to run.
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("VIDEOTEKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Download.MaxConcurrent < 1 || c.Download.MaxConcurrent > 10 {
		return fmt.Errorf("download.max_concurrent must be between 1 and 10, got %d", c.Download.MaxConcurrent)
	}

	if c.Download.MaxAttempts < 1 {
		c.Download.MaxAttempts = 3
	}

	if c.Download.GraceSeconds < 1 || c.Download.GraceSeconds > 30 {
		return fmt.Errorf("download.grace_seconds must be between 1 and 30, got %d", c.Download.GraceSeconds)
	}

	if c.Download.Dir == "" {
		c.Download.Dir = "./downloads"
	}

	switch c.Defaults.Quality {
	case "best", "1080p", "720p", "480p", "audio":
	default:
		return fmt.Errorf("defaults.quality %q is not one of best, 1080p, 720p, 480p, audio", c.Defaults.Quality)
	}

	switch c.Defaults.Format {
	case "mp4", "webm", "mkv":
	default:
		return fmt.Errorf("defaults.format %q is not one of mp4, webm, mkv", c.Defaults.Format)
	}

	return nil
}
