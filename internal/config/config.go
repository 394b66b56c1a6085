package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Log           LogConfig
	OIDC          OIDCConfig
	Admin         AdminConfig
	Elasticsearch ElasticsearchConfig
	PayPal        PayPalConfig
	RateLimit     RateLimitConfig
	Crypto        CryptoConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type OIDCConfig struct {
	IssuerURL string `mapstructure:"issuerUrl"`
	ClientID  string `mapstructure:"clientId"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"passwordHash"`
	JWTSecret    string        `mapstructure:"jwtSecret"`
	TokenTTL     time.Duration `mapstructure:"tokenTtl"`
}

type ElasticsearchConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PayPalConfig struct {
	ClientID     string        `mapstructure:"clientId"`
	ClientSecret string        `mapstructure:"clientSecret"`
	Mode         string        `mapstructure:"mode"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	SearchMax  int           `mapstructure:"searchMax"`
	OrderMax   int           `mapstructure:"orderMax"`
	CaptureMax int           `mapstructure:"captureMax"`
	Window     time.Duration `mapstructure:"window"`
}

type CryptoConfig struct {
	Wallet string `mapstructure:"wallet"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readTimeout", 5*time.Second)
	viper.SetDefault("server.writeTimeout", 10*time.Second)
	viper.SetDefault("server.idleTimeout", 120*time.Second)
	viper.SetDefault("server.shutdownPeriod", 15*time.Second)

	viper.SetDefault("database.maxOpenConns", 25)
	viper.SetDefault("database.maxIdleConns", 25)
	viper.SetDefault("database.connMaxLifetime", 5*time.Minute)

	viper.SetDefault("redis.db", "0")

	viper.SetDefault("log.level", "info")

	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.tokenTtl", 12*time.Hour)

	viper.SetDefault("elasticsearch.timeout", 30*time.Second)

	viper.SetDefault("paypal.mode", "sandbox")
	viper.SetDefault("paypal.timeout", 30*time.Second)

	viper.SetDefault("ratelimit.searchMax", 30)
	viper.SetDefault("ratelimit.orderMax", 10)
	viper.SetDefault("ratelimit.captureMax", 5)
	viper.SetDefault("ratelimit.window", time.Minute)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AllowEmptyEnv(true)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
