package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 10061, cfg.Server.Port)
	assert.True(t, cfg.Matching.DiveInEnabled)
	assert.False(t, cfg.Matching.VerboseNoMatchLogging)
	assert.Equal(t, 10*time.Minute, cfg.Matching.RoomTTL)
	assert.Equal(t, time.Minute, cfg.Matching.SweepInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Empty(t, cfg.Matching.Moderators)
}

func TestBindEnvVariables(t *testing.T) {
	t.Setenv("DIVE_IN_ENABLED", "false")
	t.Setenv("VERBOSE_NO_MATCH_LOGGING", "true")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("MODERATORS", "mod-1 mod-2")

	v := viper.New()
	setDefaults(v)
	bindEnvVariables(v)
	cfg := fromViper(v)

	assert.False(t, cfg.Matching.DiveInEnabled)
	assert.True(t, cfg.Matching.VerboseNoMatchLogging)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"mod-1", "mod-2"}, cfg.Matching.Moderators)
}

func TestGetAddr(t *testing.T) {
	server := ServerConfig{Host: "127.0.0.1", Port: 10061}
	redis := RedisConfig{Host: "cache", Port: 6379}
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}

	assert.Equal(t, "127.0.0.1:10061", server.GetAddr())
	assert.Equal(t, "cache:6379", redis.GetAddr())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", db.GetDSN())
}
