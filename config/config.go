// File: /config/config.go
package config

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreMemory    = "memory"
	StoreMySQL     = "mysql"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

type Config struct {
	Port     string
	LogLevel string

	StoreDriver              string
	DatabaseURL              string
	FirestoreProjectID       string
	FirestoreCredentialsFile string

	JWTSecret string

	// Media host (S3 compatible bucket)
	MediaEndpoint  string
	MediaAccessKey string
	MediaSecretKey string
	MediaBucket    string
	MediaUseSSL    bool
	MediaPublicURL string

	// Email Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	RateLimitPerMinute int
	RateLimitBurst     int

	LikeWriteTimeout time.Duration
	FeedSessionTTL   time.Duration
	CleanupSchedule  string

	// Demo author and posts for an empty store
	SeedDemoData bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("database_url", "user:password@tcp(localhost:3306)/yonkoma?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("firestore_project_id", "")
	v.SetDefault("firestore_credentials_file", "")
	v.SetDefault("jwt_secret", "your-secret-key")
	v.SetDefault("media_endpoint", "")
	v.SetDefault("media_access_key", "")
	v.SetDefault("media_secret_key", "")
	v.SetDefault("media_bucket", "yonkoma")
	v.SetDefault("media_use_ssl", false)
	v.SetDefault("media_public_url", "")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 2525)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("from_email", "noreply@yonkoma.app")
	v.SetDefault("from_name", "Yonkoma")
	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("like_write_timeout", "10s")
	v.SetDefault("feed_session_ttl", "30m")
	v.SetDefault("cleanup_schedule", "@every 60m")
	v.SetDefault("seed_demo_data", false)
}

// Load reads settings.toml from the working directory or its parent, then
// lets upper-cased environment variables override any key.
func Load() *Config {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn().Err(err).Msg("Failed to read settings file, using defaults and environment.")
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		StoreDriver:              v.GetString("store_driver"),
		DatabaseURL:              v.GetString("database_url"),
		FirestoreProjectID:       v.GetString("firestore_project_id"),
		FirestoreCredentialsFile: v.GetString("firestore_credentials_file"),

		JWTSecret: v.GetString("jwt_secret"),

		MediaEndpoint:  v.GetString("media_endpoint"),
		MediaAccessKey: v.GetString("media_access_key"),
		MediaSecretKey: v.GetString("media_secret_key"),
		MediaBucket:    v.GetString("media_bucket"),
		MediaUseSSL:    v.GetBool("media_use_ssl"),
		MediaPublicURL: v.GetString("media_public_url"),

		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		FromEmail:    v.GetString("from_email"),
		FromName:     v.GetString("from_name"),

		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		RateLimitBurst:     v.GetInt("rate_limit_burst"),

		LikeWriteTimeout: v.GetDuration("like_write_timeout"),
		FeedSessionTTL:   v.GetDuration("feed_session_ttl"),
		CleanupSchedule:  v.GetString("cleanup_schedule"),

		SeedDemoData: v.GetBool("seed_demo_data"),
	}
}
