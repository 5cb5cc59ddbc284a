package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	sharedConfig "nyxvpn/internal/shared/config"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Panels       sharedConfig.PanelsConfig       `mapstructure:"panels"`
	Subscription sharedConfig.SubscriptionConfig `mapstructure:"subscription"`
	Scheduler    sharedConfig.SchedulerConfig    `mapstructure:"scheduler"`
	Notifier     sharedConfig.NotifierConfig     `mapstructure:"notifier"`
}

// Load reads configuration from configs/config.yaml and NYXVPN_* environment
// variables. The returned Config is built once at startup and passed
// explicitly to components; nothing re-reads it lazily.
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("NYXVPN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "nyxvpn_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("panels.primary.inbound_id", 1)
	viper.SetDefault("panels.secondary.inbound_id", 1)

	viper.SetDefault("subscription.tariff_price", 150)
	viper.SetDefault("subscription.tariff_days", 30)
	viper.SetDefault("subscription.trial_days", 3)
	viper.SetDefault("subscription.referral_min_transfer", 150)

	viper.SetDefault("scheduler.purge_interval_hours", 12)
	viper.SetDefault("scheduler.notify_interval_hours", 6)
	viper.SetDefault("scheduler.purge_grace_hours", 24)
	viper.SetDefault("scheduler.expiring_soon_days", 3)

	viper.SetDefault("notifier.transport", "telegram")
}
