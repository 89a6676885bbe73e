package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionString(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_USER", "school")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "campus")
	t.Setenv("DB_SSLMODE", "")

	pg, err := connectionString(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=school password=secret dbname=campus sslmode=disable", pg)

	my, err := connectionString(DriverMySQL)
	require.NoError(t, err)
	assert.Contains(t, my, "school:secret@tcp(localhost:3306)/campus")

	_, err = connectionString("sqlite")
	assert.Error(t, err)
}

func TestConnectionString_PrefersDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db/campus")
	got, err := connectionString(DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/campus", got)
}

func TestConnectionString_MissingVariables(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	_, err := connectionString(DriverPostgres)
	assert.Error(t, err)
}

func TestInitRedis_DisabledWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	require.NoError(t, InitRedis())
	assert.Nil(t, Redis)
}
