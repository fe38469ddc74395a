// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Chains        ChainsConfig       `mapstructure:"chains"`
	Monitor       MonitorConfig      `mapstructure:"monitor"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ChainsConfig maps chain identifiers to RPC endpoints
type ChainsConfig struct {
	Endpoints      map[string]string `mapstructure:"endpoints"`
	RPCConfigFile  string            `mapstructure:"rpc_config_file"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	RateLimit      float64           `mapstructure:"rate_limit"`
	RateBurst      int               `mapstructure:"rate_burst"`
}

// MonitorConfig contains block scanning configuration
type MonitorConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	// ConfirmationBlocks holds the scan this many blocks behind head
	ConfirmationBlocks int `mapstructure:"confirmation_blocks"`
}

// StorageConfig contains tracked-address store configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres, mongo, redis, memory
	ConnectionString string        `mapstructure:"connection_string"`
	Database         string        `mapstructure:"database"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// NotificationConfig contains notification sink configuration
type NotificationConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	QueueSize     int            `mapstructure:"queue_size"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	RetryAttempts int            `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration  `mapstructure:"retry_delay"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
	Webhook       WebhookConfig  `mapstructure:"webhook"`
	AMQP          AMQPConfig     `mapstructure:"amqp"`
	Log           LogSinkConfig  `mapstructure:"log"`
}

// TelegramConfig configures the Telegram bot API sink
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
	APIURL  string `mapstructure:"api_url"`
	// Commands enables answering chat commands via getUpdates long polling
	Commands    bool          `mapstructure:"commands"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// WebhookConfig configures the JSON webhook sink
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// AMQPConfig configures the message broker sink
type AMQPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// LogSinkConfig configures the log sink
type LogSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			utils.GetLogger().Info("Config file not found, using defaults and environment variables")
		} else {
			return nil, utils.WrapError(utils.ErrCodeStartupConfig, "Error reading config file", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, utils.WrapError(utils.ErrCodeStartupConfig, "Error unmarshaling config", err)
	}

	if config.Chains.RPCConfigFile != "" {
		endpoints, err := loadRPCConfig(config.Chains.RPCConfigFile)
		if err != nil {
			return nil, err
		}
		if config.Chains.Endpoints == nil {
			config.Chains.Endpoints = make(map[string]string)
		}
		for id, endpoint := range endpoints {
			if _, ok := config.Chains.Endpoints[id]; !ok {
				config.Chains.Endpoints[id] = endpoint
			}
		}
	}

	// Same variable names the chat bot deployment has always used
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" && config.Notifications.Telegram.Token == "" {
		config.Notifications.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" && config.Notifications.Telegram.ChatID == "" {
		config.Notifications.Telegram.ChatID = chatID
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}

	return &config, nil
}

// loadRPCConfig reads a JSON object of chain id -> RPC URL
func loadRPCConfig(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, utils.WrapError(utils.ErrCodeStartupConfig, "Error reading RPC config file", err)
	}

	endpoints := make(map[string]string)
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if value == "" {
			return nil, utils.NewAppError(utils.ErrCodeStartupConfig,
				"Malformed RPC config entry", key)
		}
		endpoints[key] = value
	}
	return endpoints, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "multichain-watcher")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Chain defaults
	v.SetDefault("chains.request_timeout", "10s")
	v.SetDefault("chains.rate_limit", 10)
	v.SetDefault("chains.rate_burst", 20)

	// Monitor defaults
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.poll_interval", "1s")
	v.SetDefault("monitor.batch_size", 50)
	v.SetDefault("monitor.retry_delay", "2s")
	v.SetDefault("monitor.max_backoff", "1m")
	v.SetDefault("monitor.confirmation_blocks", 0)

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.connection_string", "./data/addresses.db")
	v.SetDefault("storage.database", "watcher")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.max_idle_time", "15m")
	v.SetDefault("storage.operation_timeout", "10s")

	// Notification defaults
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.queue_size", 1024)
	v.SetDefault("notifications.timeout", "10s")
	v.SetDefault("notifications.retry_attempts", 3)
	v.SetDefault("notifications.retry_delay", "2s")
	v.SetDefault("notifications.telegram.api_url", "https://api.telegram.org")
	v.SetDefault("notifications.telegram.poll_timeout", "30s")
	v.SetDefault("notifications.amqp.exchange", "watcher.events")
	v.SetDefault("notifications.log.enabled", true)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.enable_health", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// ChainConfigs returns the configured networks sorted by id
func (c *Config) ChainConfigs() []models.ChainConfig {
	return models.ChainConfigsFromEndpoints(c.Chains.Endpoints)
}

// Validate validates the configuration. Every failure is a startup config error.
func (c *Config) Validate() error {
	if len(c.Chains.Endpoints) == 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "At least one chain endpoint is required", "")
	}
	seenIDs := make(map[string]bool)
	seenFamilies := make(map[models.Family]string)
	for _, chain := range c.ChainConfigs() {
		if chain.ID == "" {
			return utils.NewAppError(utils.ErrCodeStartupConfig, "Chain id must not be empty", "")
		}
		if seenIDs[chain.ID] {
			return utils.NewAppError(utils.ErrCodeStartupConfig, "Chain "+chain.ID+" is configured twice", "")
		}
		seenIDs[chain.ID] = true
		// Solana and TON each have a single network
		if chain.Family != models.FamilyEVM {
			if prev, ok := seenFamilies[chain.Family]; ok {
				return utils.NewAppError(utils.ErrCodeStartupConfig,
					fmt.Sprintf("Only one %s chain may be configured", chain.Family),
					fmt.Sprintf("%s and %s", prev, chain.ID))
			}
			seenFamilies[chain.Family] = chain.ID
		}
		if err := validateEndpoint(chain.Endpoint); err != nil {
			return utils.NewAppError(utils.ErrCodeStartupConfig,
				"Malformed endpoint for chain "+chain.ID, err.Error())
		}
	}
	if c.Chains.RequestTimeout <= 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Chain request timeout must be positive", "")
	}
	if c.Monitor.PollInterval <= 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Monitor poll interval must be positive", "")
	}
	if c.Monitor.BatchSize <= 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Monitor batch size must be positive", "")
	}
	if c.Monitor.RetryDelay <= 0 || c.Monitor.MaxBackoff < c.Monitor.RetryDelay {
		return utils.NewAppError(utils.ErrCodeStartupConfig,
			"Monitor retry delay must be positive and not exceed max backoff", "")
	}
	if c.Monitor.ConfirmationBlocks < 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Monitor confirmation blocks must not be negative", "")
	}
	if c.Notifications.QueueSize <= 0 {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Notification queue size must be positive", "")
	}
	if c.Notifications.Telegram.Enabled && (c.Notifications.Telegram.Token == "" || c.Notifications.Telegram.ChatID == "") {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Telegram sink requires token and chat_id", "")
	}
	if c.Notifications.Telegram.Commands && c.Notifications.Telegram.Token == "" {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Telegram commands require token", "")
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "Webhook sink requires url", "")
	}
	if c.Notifications.AMQP.Enabled && c.Notifications.AMQP.URL == "" {
		return utils.NewAppError(utils.ErrCodeStartupConfig, "AMQP sink requires url", "")
	}
	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return fmt.Errorf("endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}
	return nil
}
