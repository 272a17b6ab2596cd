package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.Interview.MaxQuestions)
	assert.Equal(t, 10*time.Second, cfg.Interview.ReadDuration())
	assert.Equal(t, 2*time.Second, cfg.Interview.FollowUpCueDuration())
	assert.Equal(t, 60*time.Second, cfg.Client.Timeout())
	assert.Equal(t, "mockinterview", cfg.Stores.MongoDB)
	assert.Equal(t, 20, cfg.Stores.PostgresConns)
	assert.Equal(t, "feedback-workers", cfg.Worker.Group)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INTERVIEW__MAX_QUESTIONS", "8")
	t.Setenv("CLIENT__BASE_URL", "https://interview.example.com")
	t.Setenv("GCP__DISABLE_TTS", "true")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Interview.MaxQuestions)
	assert.Equal(t, "https://interview.example.com", cfg.Client.BaseURL)
	assert.True(t, cfg.GCP.DisableTTS)
	assert.Equal(t, "localhost:6380", cfg.Stores.RedisAddr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("INTERVIEW__MAX_QUESTIONS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestRedisOptions(t *testing.T) {
	opt, err := redisOptions("redis://:secret@cache:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)

	opt, err = redisOptions(" localhost:6379 ")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opt.Addr)

	_, err = redisOptions("")
	assert.Error(t, err)
}

func TestMongoOptions(t *testing.T) {
	opts := mongoOptions(StoreConfig{MongoURI: "mongodb://localhost:27017"})
	assert.Nil(t, opts.TLSConfig)

	opts = mongoOptions(StoreConfig{MongoURI: "mongodb://localhost:27017", MongoTLS12: true})
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(0x0303), opts.TLSConfig.MaxVersion)
}
