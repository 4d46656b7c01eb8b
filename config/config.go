package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	RTC        RTCConfig
	Realtime   RealtimeConfig
	Cloudinary CloudinaryConfig
	Vault      VaultConfig
	Booking    BookingConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// RTCConfig configures the voice-call token issuer. Provider "hmac" signs
// channel tokens locally; "stub" issues inert tokens for development.
type RTCConfig struct {
	Provider       string
	AppID          string
	AppCertificate string
	TokenExpiry    time.Duration
}

type RealtimeConfig struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	EventRateLimit int // per user per event kind per minute
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// VaultConfig holds the master key that seals chat secrets at rest.
type VaultConfig struct {
	MasterKey string // 32 bytes, hex or raw
}

type BookingConfig struct {
	GeoRadiusKm float64
}

// Load reads defaults, an optional config file, and HUMRAH_* env
// overrides (e.g. HUMRAH_DATABASE_DSN).
func Load() *Config {
	v := viper.New()
	v.SetConfigName("humrah")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.readtimeout", 10*time.Second)
	v.SetDefault("server.writetimeout", 10*time.Second)

	v.SetDefault("database.dsn", "humrah:humrah@tcp(localhost:3306)/humrah?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.maxidleconns", 10)
	v.SetDefault("database.maxopenconns", 100)
	v.SetDefault("database.connmaxlifetime", time.Hour)

	v.SetDefault("jwt.accesssecret", "change-me-in-production")
	v.SetDefault("jwt.accessexpiry", 15*time.Minute)
	v.SetDefault("jwt.issuer", "humrah")

	v.SetDefault("rtc.provider", "hmac")
	v.SetDefault("rtc.appid", "")
	v.SetDefault("rtc.appcertificate", "")
	v.SetDefault("rtc.tokenexpiry", 30*time.Minute)

	v.SetDefault("realtime.pinginterval", 25*time.Second)
	v.SetDefault("realtime.pongwait", 60*time.Second)
	v.SetDefault("realtime.writewait", 10*time.Second)
	v.SetDefault("realtime.eventratelimit", 60)

	v.SetDefault("cloudinary.cloudname", "")
	v.SetDefault("cloudinary.apikey", "")
	v.SetDefault("cloudinary.apisecret", "")

	v.SetDefault("vault.masterkey", "")

	v.SetDefault("booking.georadiuskm", 50.0)

	v.SetEnvPrefix("HUMRAH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file unreadable, using defaults", "err", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		slog.Error("config unmarshal failed, using defaults", "err", err)
		return defaultConfig()
	}
	return &c
}

func defaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Env: "development", ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		Database: DatabaseConfig{DSN: "humrah:humrah@tcp(localhost:3306)/humrah?charset=utf8mb4&parseTime=True&loc=Local", MaxIdleConns: 10, MaxOpenConns: 100, ConnMaxLifetime: time.Hour},
		JWT:      JWTConfig{AccessSecret: "change-me-in-production", AccessExpiry: 15 * time.Minute, Issuer: "humrah"},
		RTC:      RTCConfig{Provider: "hmac", TokenExpiry: 30 * time.Minute},
		Realtime: RealtimeConfig{PingInterval: 25 * time.Second, PongWait: 60 * time.Second, WriteWait: 10 * time.Second, EventRateLimit: 60},
		Booking:  BookingConfig{GeoRadiusKm: 50.0},
	}
}
