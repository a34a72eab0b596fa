package usage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherproxy/internal/models"
)

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	t.Run("disabled", func(t *testing.T) {
		r, err := f.Create(models.UsageConfig{Enabled: false, Type: models.UsageTypeMemory})
		assert.ErrorIs(t, err, ErrDisabled)
		assert.Nil(t, r)
	})

	t.Run("memory", func(t *testing.T) {
		r, err := f.Create(models.UsageConfig{Enabled: true, Type: models.UsageTypeMemory, MaxEvents: 10})
		require.NoError(t, err)
		assert.IsType(t, &MemoryRecorder{}, r)
	})

	t.Run("sqlite", func(t *testing.T) {
		r, err := f.Create(models.UsageConfig{
			Enabled: true,
			Type:    models.UsageTypeSQLite,
			DSN:     filepath.Join(t.TempDir(), "usage.db"),
		})
		require.NoError(t, err)
		defer r.Close()
		assert.IsType(t, &SQLiteRecorder{}, r)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := f.Create(models.UsageConfig{Enabled: true, Type: "cassandra"})
		assert.Error(t, err)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		_, err := f.Create(models.UsageConfig{
			Enabled: true,
			Type:    models.UsageTypeRedis,
			Redis:   models.RedisConfig{Addr: "127.0.0.1:1"},
		})
		assert.Error(t, err)
	})
}

func TestFactory_SupportedTypes(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{models.UsageTypeMemory, models.UsageTypeSQLite, models.UsageTypePostgres, models.UsageTypeRedis},
		NewFactory().SupportedTypes())
}
