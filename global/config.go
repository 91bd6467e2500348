package global

import (
	"os"
	"time"

	"AMProject/tools/decode"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type NatsConfig struct {
	Servers []string `mapstructure:"servers"`
	Name    string   `mapstructure:"name"`
}

type AppConfig struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	NodeID      int64         `mapstructure:"node_id"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Mongo       MongoConfig   `mapstructure:"mongo"`
	Nats        NatsConfig    `mapstructure:"nats"`
}

// Load reads the environment into an AppConfig, filling defaults for
// anything unset.
func Load() (*AppConfig, error) {
	raw := map[string]any{
		"listen_addr":  getenv("LISTEN_ADDR", ":8080"),
		"jwt_secret":   getenv("JWT_SECRET", "dev-secret-change-me"),
		"node_id":      getenv("NODE_ID", "1"),
		"ping_period":  getenv("PING_PERIOD", "60s"),
		"presence_ttl": getenv("PRESENCE_TTL", "2h"),
		"redis": map[string]any{
			"addr":     getenv("REDIS_ADDR", "127.0.0.1:6379"),
			"password": getenv("REDIS_PASSWORD", ""),
			"db":       getenv("REDIS_DB", "0"),
		},
		"mongo": map[string]any{
			"uri":      getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			"database": getenv("MONGO_DB", "appraisal"),
		},
		"nats": map[string]any{
			"servers": getenv("NATS_URLS", "nats://127.0.0.1:4222"),
			"name":    getenv("NATS_NAME", "am-session-1"),
		},
	}
	return decode.Map[AppConfig](raw)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
