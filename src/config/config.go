package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN         string
	RedisURL         string
	JWTSecret        string
	AdminSecret      string
	Port             string
	SweepIntervalSec int
	DiscordToken     string
	DiscordChannelID string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	sweep, _ := strconv.Atoi(getenv("SWEEP_INTERVAL", "60"))
	return Config{
		MySQLDSN:         getenv("MYSQL_DSN", "realmgov:realmgov@tcp(127.0.0.1:3306)/realmgov?parseTime=true"),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:        getenv("JWT_SECRET", ""),
		AdminSecret:      getenv("ADMIN_SECRET", ""),
		Port:             getenv("PORT", "8080"),
		SweepIntervalSec: sweep,
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
	}
}
