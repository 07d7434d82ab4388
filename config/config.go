package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries all environment-derived settings. It is built once in
// Load and passed into constructors; nothing reads the environment after
// startup.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Wireguard WireguardConfig
	Xray      XrayConfig
}

type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	Path     string // sqlite file path
}

type RedisConfig struct {
	Addr     string // empty disables the cache
	Password string
	DB       int
}

type ServerConfig struct {
	Listen        string
	JWTSecret     string
	AdminPassword string
	BotName       string
}

type WireguardConfig struct {
	Interface           string
	ServerPublicKeyPath string
	Endpoint            string
	AllowedIPs          string
	DNS                 string
	SubnetPrefix        string
	FirstClientIP       int
}

type XrayConfig struct {
	ConfigPath    string
	Service       string
	ServerName    string
	ServerAddress string
	PublicKey     string
	ShortID       string
	ConfigPrefix  string
}

// Load builds the Config from the process environment. Settings required
// for the enabled protocols are validated here so a misconfigured process
// fails at startup instead of on the first user request.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:   envOrDefault("DB_DRIVER", "postgres"),
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     envOrDefault("DB_PORT", "5432"),
			Path:     envOrDefault("DB_PATH", "data/bot.db"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envIntOrDefault("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Listen:        envOrDefault("ADMIN_LISTEN", ":8080"),
			JWTSecret:     os.Getenv("JWT_SECRET"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			BotName:       envOrDefault("BOT_NAME", "VPN Bot"),
		},
		Wireguard: WireguardConfig{
			Interface:           envOrDefault("WG_INTERFACE", "wg0"),
			ServerPublicKeyPath: envOrDefault("WG_SERVER_PUBLIC_KEY_PATH", "/etc/wireguard/server.pub"),
			Endpoint:            os.Getenv("WG_ENDPOINT"),
			AllowedIPs:          envOrDefault("WG_ALLOWED_IPS", "0.0.0.0/0"),
			DNS:                 envOrDefault("WG_DNS", "1.1.1.1"),
			SubnetPrefix:        envOrDefault("WG_SUBNET_PREFIX", "10.8.0."),
			FirstClientIP:       envIntOrDefault("WG_FIRST_CLIENT_IP", 10),
		},
		Xray: XrayConfig{
			ConfigPath:    envOrDefault("XRAY_CONFIG_PATH", "/usr/local/etc/xray/config.json"),
			Service:       envOrDefault("XRAY_SERVICE", "xray"),
			ServerName:    os.Getenv("XRAY_SERVER_NAME"),
			ServerAddress: os.Getenv("XRAY_SERVER_ADDRESS"),
			PublicKey:     os.Getenv("XRAY_PUBLIC_KEY"),
			ShortID:       os.Getenv("XRAY_SHORT_ID"),
			ConfigPrefix:  envOrDefault("XRAY_CONFIG_PREFIX", "VPN"),
		},
	}

	if cfg.Wireguard.Endpoint == "" {
		return nil, fmt.Errorf("WG_ENDPOINT is not set in environment")
	}
	if cfg.Server.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set in environment")
	}
	if cfg.Server.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is not set in environment")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
