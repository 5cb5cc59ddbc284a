package config

import "fmt"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PanelConfig describes one access-control panel deployment. BaseURL may
// carry a path prefix; the panel client splits it into host and base path.
type PanelConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	InboundID  int    `mapstructure:"inbound_id"`
	SubURL     string `mapstructure:"sub_url"`
	LandingURL string `mapstructure:"landing_url"`
}

type PanelsConfig struct {
	Primary   PanelConfig `mapstructure:"primary"`
	Secondary PanelConfig `mapstructure:"secondary"`
}

type SubscriptionConfig struct {
	TariffPrice         int64 `mapstructure:"tariff_price"`
	TariffDays          int   `mapstructure:"tariff_days"`
	TrialDays           int   `mapstructure:"trial_days"`
	ReferralMinTransfer int64 `mapstructure:"referral_min_transfer"`
}

type SchedulerConfig struct {
	PurgeIntervalHours  int `mapstructure:"purge_interval_hours"`
	NotifyIntervalHours int `mapstructure:"notify_interval_hours"`
	PurgeGraceHours     int `mapstructure:"purge_grace_hours"`
	ExpiringSoonDays    int `mapstructure:"expiring_soon_days"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	OpsAddress   string `mapstructure:"ops_address"`
}

// NotifierConfig selects the transport used by the notification sweep:
// "telegram" (default) or "email".
type NotifierConfig struct {
	Transport string         `mapstructure:"transport"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Email     EmailConfig    `mapstructure:"email"`
}
