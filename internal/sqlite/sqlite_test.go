package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, DriverName(), info.DriverName)
	assert.Equal(t, DriverType(), info.DriverType)
	assert.NotEmpty(t, info.Package)
	assert.Equal(t, info.DriverType == "cgo", IsCGO())
}

func TestDriverRegistered(t *testing.T) {
	db, err := sql.Open(DriverName(), MemoryPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var one int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}
