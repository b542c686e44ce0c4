package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	S3       S3Config
	Launcher LauncherConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type AppConfig struct {
	InputDir       string
	OutputDir      string
	UploadDir      string
	StaticDir      string
	TemplateDir    string
	AllowedFormats []string
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

type LauncherConfig struct {
	BrowserDelay time.Duration
}

// Load reads .env (if any), the optional YAML file named by CONFIG_FILE and
// the environment, then makes sure every working directory exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			Mode:         v.GetString("SERVER_MODE"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		App: AppConfig{
			InputDir:       v.GetString("APP_INPUT_DIR"),
			OutputDir:      v.GetString("APP_OUTPUT_DIR"),
			UploadDir:      v.GetString("APP_UPLOAD_DIR"),
			StaticDir:      v.GetString("APP_STATIC_DIR"),
			TemplateDir:    v.GetString("APP_TEMPLATE_DIR"),
			AllowedFormats: normalizeFormats(v.GetStringSlice("APP_ALLOWED_FORMATS")),
		},
		S3: S3Config{
			Enabled:         v.GetBool("S3_ENABLED"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("S3_USE_SSL"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
		},
		Launcher: LauncherConfig{
			BrowserDelay: v.GetDuration("LAUNCHER_BROWSER_DELAY"),
		},
	}

	if len(cfg.App.AllowedFormats) == 0 {
		return nil, fmt.Errorf("APP_ALLOWED_FORMATS must name at least one extension")
	}

	if err := createDirs(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)

	v.SetDefault("APP_INPUT_DIR", "data/images")
	v.SetDefault("APP_OUTPUT_DIR", "data/masks")
	v.SetDefault("APP_UPLOAD_DIR", "static/uploads")
	v.SetDefault("APP_STATIC_DIR", "static")
	v.SetDefault("APP_TEMPLATE_DIR", "web/templates")
	v.SetDefault("APP_ALLOWED_FORMATS", []string{".jpg", ".jpeg", ".png"})

	v.SetDefault("S3_ENABLED", false)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_BUCKET_NAME", "annotations")
	v.SetDefault("S3_REGION", "us-east-1")

	v.SetDefault("LAUNCHER_BROWSER_DELAY", 3*time.Second)
}

// normalizeFormats accepts both list values and comma separated env strings
// and returns lower-case extensions with a leading dot.
func normalizeFormats(raw []string) []string {
	var formats []string
	for _, item := range raw {
		for _, ext := range strings.Split(item, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			formats = append(formats, ext)
		}
	}
	return formats
}

func createDirs(cfg *Config) error {
	dirs := []string{
		cfg.App.InputDir,
		cfg.App.OutputDir,
		cfg.App.StaticDir,
		cfg.App.UploadDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
