// Ininicializing common application configuration
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Compressor CompressorConfig `mapstructure:"compressor"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Events     EventsConfig     `mapstructure:"events"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	AppVersion      string        `mapstructure:"app_version"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	Timeout         time.Duration `mapstructure:"timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Env             string        `mapstructure:"environment"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
}

type CompressorConfig struct {
	Binary     string        `mapstructure:"binary" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"min=0"`
	TempRoot   string        `mapstructure:"temp_root"`
	DirPrefix  string        `mapstructure:"dir_prefix" validate:"required,excludesall=/\\"`
	StaleAfter time.Duration `mapstructure:"stale_after" validate:"min=0"`
}

type QueueConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"min=1"`
	MaxPending     int           `mapstructure:"max_pending" validate:"min=0"`
	MaxWait        time.Duration `mapstructure:"max_wait" validate:"min=0"`
}

type UploadConfig struct {
	MaxBodyMB int64 `mapstructure:"max_body_mb" validate:"min=1"`
}

type CacheConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

// LoadConfig reads ./config/config.yaml when present. The file is optional, every key
// has a default and can be overridden from the environment (KTX2_SERVER_PORT, PORT, ...).
func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	setDefaults(viperInstance)
	bindEnv(viperInstance)

	err := viperInstance.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.timeout", 15*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.read_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 2*time.Minute)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "release")

	// Compressor defaults
	v.SetDefault("compressor.binary", "./bin/basisu")
	v.SetDefault("compressor.timeout", 5*time.Minute)
	v.SetDefault("compressor.temp_root", "")
	v.SetDefault("compressor.dir_prefix", "temp-")
	v.SetDefault("compressor.stale_after", time.Hour)

	// Queue defaults
	v.SetDefault("queue.max_concurrency", 1)
	v.SetDefault("queue.max_pending", 64)
	v.SetDefault("queue.max_wait", 5*time.Minute)

	v.SetDefault("upload.max_body_mb", 64)

	// Cache is disabled unless an address is given
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "ktx2-conversions")

	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("KTX2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// PORT is the conventional variable set by hosting platforms
	_ = v.BindEnv("server.port", "KTX2_SERVER_PORT", "PORT")
}
