package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the process-wide configuration assembled at boot and injected
// into every component that needs it.
type AppConfig struct {
	App        AppSettings        `mapstructure:"app"`
	Postgres   PostgresSettings   `mapstructure:"postgres"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	SMTP       SMTPSettings       `mapstructure:"smtp"`
	Session    SessionSettings    `mapstructure:"session"`
	Onboarding OnboardingSettings `mapstructure:"onboarding"`
}

type AppSettings struct {
	Name               string   `mapstructure:"name"`
	Env                string   `mapstructure:"env"`
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the session store backend.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	SessionPrefix string `mapstructure:"session_prefix"`
}

// KafkaSettings configures the lifecycle event publisher. An empty broker list
// selects the logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SMTPSettings configures the credentials mailer.
type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	LoginURL string `mapstructure:"login_url"`
}

// SessionSettings holds the two inactivity timeouts: the standard one applied
// after a full login and the short remedial one applied while a mandatory
// password change is pending.
type SessionSettings struct {
	CookieName      string        `mapstructure:"cookie_name"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RemedialTimeout time.Duration `mapstructure:"remedial_timeout"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
}

// OnboardingSettings configures the scheduled onboarding job.
type OnboardingSettings struct {
	CronSpec      string        `mapstructure:"cron_spec"`
	MailRetries   int           `mapstructure:"mail_retries"`
	MailRetryWait time.Duration `mapstructure:"mail_retry_wait"`
}

// Load reads configuration from config.yaml (optional) and the environment.
// Environment variables use the LEANX_ prefix with underscores, e.g.
// LEANX_POSTGRES_HOST, LEANX_SMTP_PASSWORD.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEANX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "leanx-erp")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_allowed_origins", []string{})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "leanx")
	v.SetDefault("postgres.database", "leanx")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_prefix", "leanx:session")

	v.SetDefault("kafka.topic_prefix", "leanx")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.login_url", "www.lean-x.de")

	v.SetDefault("session.cookie_name", "LEANX_SESSION")
	v.SetDefault("session.timeout", 24*time.Hour)
	v.SetDefault("session.remedial_timeout", time.Hour)
	// Unmarshal only sees env overrides for keys viper already knows.
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("onboarding.cron_spec", "0 1 * * *")
	v.SetDefault("onboarding.mail_retries", 3)
	v.SetDefault("onboarding.mail_retry_wait", time.Minute)
}

// Validate rejects configurations the process cannot start with.
func (c *AppConfig) Validate() error {
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("config: session.timeout must be positive")
	}
	if c.Session.RemedialTimeout <= 0 {
		return fmt.Errorf("config: session.remedial_timeout must be positive")
	}
	if c.Onboarding.MailRetries < 1 {
		return fmt.Errorf("config: onboarding.mail_retries must be at least 1")
	}
	return nil
}
