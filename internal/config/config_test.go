package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes variables for the duration of the test
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	unsetEnv(t, "CURRENCY", "OVERDUE_CHECK_INTERVAL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "BRL", cfg.Currency)
	assert.Equal(t, 6*time.Hour, cfg.OverdueCheckInterval)
	assert.Equal(t, "dev-secret-change-in-production", cfg.JWTSecret)
	assert.Equal(t, time.UTC, cfg.Timezone)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("OVERDUE_CHECK_INTERVAL", "15m")
	t.Setenv("CURRENCY", "usd")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.OverdueCheckInterval)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EVENTS_BROKER", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("EVENTS_BROKER", "none")
	t.Setenv("TIMEZONE", "Nowhere/Atlantis")
	_, err = Load()
	assert.Error(t, err)
}
