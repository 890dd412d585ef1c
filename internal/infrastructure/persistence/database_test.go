package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/receiving/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewDatabase_SQLite(t *testing.T) {
	database, err := NewDatabase(
		&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		WithGormLogger(gormlogger.Discard),
	)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.AutoMigrate())
	for _, table := range []string{
		"vendors", "parts", "purchase_orders", "purchase_order_lines",
		"receipt_events", "receipt_details", "return_details", "unordered_captures",
	} {
		assert.True(t, database.DB.Migrator().HasTable(table), table)
	}

	assert.NoError(t, database.Ping())
	stats, err := database.Pool()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_PingAndClose(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectClose()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	database := &Database{DB: gormDB}

	assert.NoError(t, database.Ping())
	assert.NoError(t, database.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
