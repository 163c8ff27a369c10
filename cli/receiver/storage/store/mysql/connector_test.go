package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueries(t *testing.T) {
	assert.Contains(t, createTableQuery("pos"), "CREATE TABLE IF NOT EXISTS pos (")
	assert.Contains(t, createTableQuery("pos"), "vehicle_id VARCHAR(64) NOT NULL PRIMARY KEY")

	q := upsertQuery("pos")
	assert.Contains(t, q, "INSERT INTO pos (vehicle_id, latitude, longitude, observed_at, received_at)")
	assert.Contains(t, q, "VALUES (?, ?, ?, ?, ?)")
	assert.Contains(t, q, "ON DUPLICATE KEY UPDATE")
}
