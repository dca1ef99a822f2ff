package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int      `yaml:"port"`
	DataDir         string   `yaml:"data_dir"`
	MaxUploadSizeMB int      `yaml:"max_upload_size_mb"`
	FrameStride     int      `yaml:"frame_stride"`
	Workers         int      `yaml:"workers"`
	CORSOrigins     []string `yaml:"cors_origins"`

	Log      LogConfig      `yaml:"log"`
	Services ServicesConfig `yaml:"services"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServicesConfig points at the model sidecars.
type ServicesConfig struct {
	ASRURL  string `yaml:"asr_url"`
	FaceURL string `yaml:"face_url"`
}

type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

func defaults() *Config {
	return &Config{
		Port:            8000,
		DataDir:         "./data",
		MaxUploadSizeMB: 500,
		FrameStride:     30,
		Workers:         2,
		CORSOrigins:     []string{"http://localhost:5173"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Services: ServicesConfig{
			ASRURL:  "http://localhost:9001",
			FaceURL: "http://localhost:9002",
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
	}
}

// Load builds the configuration from defaults, an optional yaml file and
// environment overrides, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = envInt("PORT", c.Port); err != nil {
		return err
	}
	if c.MaxUploadSizeMB, err = envInt("MAX_UPLOAD_SIZE_MB", c.MaxUploadSizeMB); err != nil {
		return err
	}
	if c.FrameStride, err = envInt("FRAME_SAMPLE_RATE", c.FrameStride); err != nil {
		return err
	}
	if c.Workers, err = envInt("WORKERS", c.Workers); err != nil {
		return err
	}

	c.DataDir = envString("DATA_DIR", c.DataDir)
	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)
	c.Services.ASRURL = envString("ASR_URL", c.Services.ASRURL)
	c.Services.FaceURL = envString("FACE_URL", c.Services.FaceURL)
	c.FFmpeg.FFmpegPath = envString("FFMPEG_PATH", c.FFmpeg.FFmpegPath)
	c.FFmpeg.FFprobePath = envString("FFPROBE_PATH", c.FFmpeg.FFprobePath)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = splitOrigins(origins)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxUploadSizeMB < 1 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadSizeMB)
	}
	if c.FrameStride < 1 {
		return fmt.Errorf("invalid frame stride: %d", c.FrameStride)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d", c.Workers)
	}
	return nil
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
