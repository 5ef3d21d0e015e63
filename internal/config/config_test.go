package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "ordercore-group", cfg.KafkaConsumerGroup)
	assert.Equal(t, time.Hour, cfg.TTL.CustomerEntity)
	assert.Equal(t, 10*time.Minute, cfg.TTL.CustomerList)
	assert.Equal(t, 30*time.Second, cfg.ShutdownGrace)
	assert.Equal(t, []string{"localhost:9092"}, cfg.GetKafkaBrokers())
}

func TestConnectionStrings(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "orders")
	t.Setenv("DB_SSLMODE", "require")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t,
		"host=db.internal port=5433 user=app password=secret dbname=orders sslmode=require",
		cfg.GetDBConnectionString())
	assert.Equal(t,
		"app:secret@db.internal:5433/orders?sslmode=require",
		cfg.GetDBMigrationConnectionString())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDurationOverride(t *testing.T) {
	t.Setenv("CACHE_TTL_ITEM", "90s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.TTL.ItemEntity)

	t.Setenv("CACHE_TTL_ITEM", "ninety seconds")
	_, err = LoadConfig()
	assert.Error(t, err)
}
