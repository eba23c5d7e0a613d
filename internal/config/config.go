package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/platform"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GO_ACTION"

type Config struct {
	Runtime     RuntimeConfig        `mapstructure:"runtime"`
	Server      ServerConfig         `mapstructure:"server"`
	Data        DataConfig           `mapstructure:"data"`
	Misc        MiscConfig           `mapstructure:"misc"`
	Credentials platform.Credentials `mapstructure:"-"`
}

type RuntimeConfig struct {
	Type            string        `mapstructure:"type" validate:"oneof=docker memory"`
	Image           string        `mapstructure:"image" validate:"required"`
	HTTPPort        int           `mapstructure:"http_port" validate:"min=1,max=65535"`
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxWait         time.Duration `mapstructure:"max_wait" validate:"gt=0"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout" validate:"gte=0"`
	AutoRemove      bool          `mapstructure:"auto_remove"`
	LocalExtensions []string      `mapstructure:"local_extensions" validate:"min=1,dive,startswith=."`
	MemoryEndpoint  string        `mapstructure:"memory_endpoint"`
	ReaperInterval  time.Duration `mapstructure:"reaper_interval" validate:"gte=0"`
	ReaperMaxAge    time.Duration `mapstructure:"reaper_max_age" validate:"gt=0"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutDownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	CORSOrigins     string        `mapstructure:"cors_origins"`
}

type DataConfig struct {
	HistoryPath     string        `mapstructure:"history_path" validate:"required"`
	HistoryLimit    int           `mapstructure:"history_limit" validate:"gte=0"`
	PersistInterval time.Duration `mapstructure:"persist_interval" validate:"gt=0"`
}

type MiscConfig struct {
	LogLevel        string `mapstructure:"log_level"`
	GinMode         string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoadConfig builds the configuration from defaults, an optional config.yaml,
// GO_ACTION_* environment variables and the platform credentials file.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithComponent("config").Warnf("cannot read .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if p := os.Getenv(envPrefix + "_CONFIG_PATH"); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(filepath.Join(homeDir(), ".go-action"))
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variables like GO_ACTION_RUNTIME_IMAGE override runtime.image
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
	} else {
		logger.WithComponent("config").Debugf("using config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	port, err := getEnvOrViperPort("PORT", "server.port", v)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = port

	credentialsFile := getEnvOrDefault("WSK_CONFIG_FILE", cfg.Misc.CredentialsFile)
	creds, err := LoadCredentials(credentialsFile)
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home := homeDir()

	v.SetDefault("runtime.type", "docker")
	v.SetDefault("runtime.image", "openwhisk/action-nodejs-v20")
	v.SetDefault("runtime.http_port", 8080)
	v.SetDefault("runtime.poll_interval", "100ms")
	v.SetDefault("runtime.max_wait", "30s")
	v.SetDefault("runtime.stop_timeout", "10s")
	v.SetDefault("runtime.auto_remove", true)
	v.SetDefault("runtime.local_extensions", []string{".js"})
	v.SetDefault("runtime.memory_endpoint", "")
	v.SetDefault("runtime.reaper_interval", "1m")
	v.SetDefault("runtime.reaper_max_age", "15m")

	v.SetDefault("server.port", 3233)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.cors_origins", "")

	v.SetDefault("data.history_path", filepath.Join(home, ".go-action", "activations.json"))
	v.SetDefault("data.history_limit", 100)
	v.SetDefault("data.persist_interval", "5s")

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.credentials_file", filepath.Join(home, ".wskprops"))
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Runtime.MaxWait < c.Runtime.PollInterval {
		return fmt.Errorf("runtime.max_wait (%s) must not be shorter than runtime.poll_interval (%s)", c.Runtime.MaxWait, c.Runtime.PollInterval)
	}
	if c.Runtime.Type == "memory" && c.Runtime.MemoryEndpoint == "" {
		return errors.New("runtime.memory_endpoint is required when runtime.type is memory")
	}
	return nil
}

// LoadCredentials reads APIHOST, AUTH and NAMESPACE from a properties file.
// A missing file yields empty credentials. __OW_API_HOST, __OW_API_KEY and
// __OW_NAMESPACE override the file.
func LoadCredentials(path string) (platform.Credentials, error) {
	props := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		switch {
		case err == nil:
			props = read
		case errors.Is(err, os.ErrNotExist):
			logger.WithComponent("config").Debugf("no credentials file at %s", path)
		default:
			return platform.Credentials{}, fmt.Errorf("read credentials file %s: %w", path, err)
		}
	}

	return platform.Credentials{
		APIHost:   getEnvOrDefault("__OW_API_HOST", props["APIHOST"]),
		AuthKey:   getEnvOrDefault("__OW_API_KEY", props["AUTH"]),
		Namespace: getEnvOrDefault("__OW_NAMESPACE", props["NAMESPACE"]),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrViperPort(envKey, viperKey string, v *viper.Viper) (int, error) {
	if value := os.Getenv(envKey); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", envKey, value, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
