package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/chat"
	"github.com/suPer8Hu/dispensary/internal/usage"
)

func TestMigrate_CreatesSchemaAndIsRepeatable(t *testing.T) {
	gdb, err := Connect("sqlite", "file:migrate_"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(gdb, nil))
	require.NoError(t, Migrate(gdb, nil))

	for _, m := range models() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, gdb.Migrator().HasIndex(&chat.Session{}, sessionStatusIndex))
	assert.True(t, gdb.Migrator().HasIndex(&usage.Record{}, "idx_usage_type_date"))
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("postgres", "", nil)
	assert.Error(t, err)
}
