package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	postgresStorage "github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	redisStorage "github.com/Badsnus/outage-alerts/internal/adapters/database/redis"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/location"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/validator"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/Badsnus/outage-alerts/pkg/smtp"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type General struct {
	Debug     bool   `mapstructure:"debug"`
	Timezone  string `mapstructure:"timezone" validate:"timezone"`
	LogToFile bool   `mapstructure:"log-to-file"`
	LogsDir   string `mapstructure:"logs-dir"`
}

type Database struct {
	// URL selects postgres. When empty the sqlite file is used.
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite-path" validate:"required_without=URL"`
}

type Redis struct {
	// Host may be empty, which disables the shared lock and the geocode cache.
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0,lte=14"`
}

type SMTP struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password"`
	Email    string `mapstructure:"email" validate:"omitempty,email"`
	Domain   string `mapstructure:"domain"`
	SSL      bool   `mapstructure:"ssl"`
}

type Source struct {
	URL         string        `mapstructure:"url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts int           `mapstructure:"max-attempts" validate:"gte=1"`
	Backoff     time.Duration `mapstructure:"backoff" validate:"gt=0"`
}

type Geocoder struct {
	URL       string        `mapstructure:"url" validate:"required,url"`
	UserAgent string        `mapstructure:"user-agent" validate:"required"`
	Country   string        `mapstructure:"country"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Delay     time.Duration `mapstructure:"delay" validate:"min=1s"`
	CacheTTL  time.Duration `mapstructure:"cache-ttl" validate:"gte=0"`
}

type Pipeline struct {
	IntervalHours     int     `mapstructure:"interval-hours" validate:"gt=0"`
	MisfireGraceHours int     `mapstructure:"misfire-grace-hours" validate:"gte=0"`
	ThresholdKm       float64 `mapstructure:"threshold-km" validate:"gt=0"`
	DedupKey          string  `mapstructure:"dedup-key" validate:"ledgerkey"`
}

type HTTP struct {
	// Addr of the ops API. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// Settings mirrors config.yaml. Every key can be overridden from the
// environment: smtp.host is SMTP_HOST, pipeline.threshold-km is PIPELINE_THRESHOLD_KM.
type Settings struct {
	Settings General  `mapstructure:"settings"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	SMTP     SMTP     `mapstructure:"smtp"`
	Source   Source   `mapstructure:"source"`
	Geocoder Geocoder `mapstructure:"geocoder"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	HTTP     HTTP     `mapstructure:"http"`
}

func (s *Settings) Interval() time.Duration {
	return time.Duration(s.Pipeline.IntervalHours) * time.Hour
}

func (s *Settings) MisfireGrace() time.Duration {
	return time.Duration(s.Pipeline.MisfireGraceHours) * time.Hour
}

func (s *Settings) LedgerKey() entity.LedgerKey {
	key, err := entity.ParseLedgerKey(s.Pipeline.DedupKey)
	if err != nil {
		return entity.LedgerKeyContent
	}
	return key
}

func (s *Settings) SMTPCredentials() smtp.Credentials {
	return smtp.Credentials{
		Host:     s.SMTP.Host,
		Port:     s.SMTP.Port,
		Username: s.SMTP.Username,
		Password: s.SMTP.Password,
		From:     s.SMTP.Email,
		Domain:   s.SMTP.Domain,
		SSL:      s.SMTP.SSL,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.debug", false)
	v.SetDefault("settings.timezone", "Africa/Kampala")
	v.SetDefault("settings.log-to-file", false)
	v.SetDefault("settings.logs-dir", "logs")

	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite-path", "outages.db")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.email", "")
	v.SetDefault("smtp.domain", "")
	v.SetDefault("smtp.ssl", false)

	v.SetDefault("source.url", "https://www.uedcl.co.ug/outage-alerts/")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("source.max-attempts", 3)
	v.SetDefault("source.backoff", 5*time.Second)

	v.SetDefault("geocoder.url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user-agent", "power-outage-app-v1")
	v.SetDefault("geocoder.country", "Uganda")
	v.SetDefault("geocoder.timeout", 10*time.Second)
	v.SetDefault("geocoder.delay", time.Second)
	v.SetDefault("geocoder.cache-ttl", 30*24*time.Hour)

	v.SetDefault("pipeline.interval-hours", 24)
	v.SetDefault("pipeline.misfire-grace-hours", 36)
	v.SetDefault("pipeline.threshold-km", 20.0)
	v.SetDefault("pipeline.dedup-key", string(entity.LedgerKeyContent))

	v.SetDefault("http.addr", ":8080")
}

// Load reads .env, then config.yaml (path, or ./config.yaml when path is
// empty), then the environment, and validates the result. Missing files are
// not an error.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &settings, nil
}

type Config struct {
	Settings *Settings
	Database *gorm.DB
	// Redis is nil when redis.host is empty.
	Redis *redisStorage.Client
}

// Get loads the configuration and connects everything it names. It panics on
// any failure; it is meant to be called once from main.
func Get(path string) *Config {
	settings, err := Load(path)
	if err != nil {
		panic(err)
	}

	if err = location.Set(settings.Settings.Timezone); err != nil {
		panic(err)
	}

	err = logger.Init(logger.Config{
		Debug:        settings.Settings.Debug,
		TimeLocation: location.Location(),
		LogToFile:    settings.Settings.LogToFile,
		LogsDir:      settings.Settings.LogsDir,
	})
	if err != nil {
		panic(err)
	}

	database, err := postgresStorage.Open(postgresStorage.Options{
		URL:        settings.Database.URL,
		SQLitePath: settings.Database.SQLitePath,
		Debug:      settings.Settings.Debug,
	})
	if err != nil {
		logger.Log.Panicf("Failed to connect to the database: %v", err)
	}
	if settings.Database.URL == "" {
		logger.Log.Infof("Successfully opened sqlite database %s", settings.Database.SQLitePath)
	} else {
		logger.Log.Info("Successfully connected to the database")
	}

	var redisClient *redisStorage.Client
	if settings.Redis.Host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		redisClient, err = redisStorage.New(ctx, redisStorage.Options{
			Host:        settings.Redis.Host,
			Port:        settings.Redis.Port,
			Password:    settings.Redis.Password,
			DB:          settings.Redis.DB,
			GeocacheTTL: settings.Geocoder.CacheTTL,
		})
		if err != nil {
			logger.Log.Panicf("Failed to connect to redis: %v", err)
		}
		logger.Log.Info("Successfully connected to redis")
	} else {
		logger.Log.Warn("redis.host is empty, running without pipeline lock and geocode cache")
	}

	return &Config{
		Settings: settings,
		Database: database,
		Redis:    redisClient,
	}
}
