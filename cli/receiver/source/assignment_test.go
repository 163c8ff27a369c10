package source

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStaticAssignment_LookupVehicleForDevice(t *testing.T) {
	s := NewStaticAssignment(map[string]string{
		"+79990001122": "BUS1",
		"+79990003344": "",
	})

	tests := []struct {
		name    string
		device  types.DeviceIdentity
		vehicle types.VehicleID
		ok      bool
	}{
		{"assigned", "+79990001122", "BUS1", true},
		{"empty assignment", "+79990003344", "", false},
		{"unknown device", "+70000000000", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vehicle, ok, err := s.LookupVehicleForDevice(context.Background(), tt.device)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.vehicle, vehicle)
		})
	}
}

func TestNewDefaultAssignmentWithDB_DefaultTable(t *testing.T) {
	s := NewDefaultAssignmentWithDB(nil, "")
	assert.Equal(t, DefaultAssignmentTable, s.table)
}

func newMockAssignment(t *testing.T) (*DefaultAssignment, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := NewDefaultAssignmentWithDB(gdb, "")
	t.Cleanup(func() { _ = s.Close() })
	return s, mock
}

func TestDefaultAssignment_LookupVehicleForDevice(t *testing.T) {
	const lookupQuery = `SELECT "assigned_bus" FROM "driver" WHERE mobile_no = `

	tests := []struct {
		name    string
		rows    []driver.Value
		vehicle types.VehicleID
		ok      bool
	}{
		{"assigned", []driver.Value{"BUS1"}, "BUS1", true},
		{"driver without bus", []driver.Value{nil}, "", false},
		{"empty bus", []driver.Value{""}, "", false},
		{"unknown driver", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockAssignment(t)

			rows := sqlmock.NewRows([]string{"assigned_bus"})
			for _, v := range tt.rows {
				rows.AddRow(v)
			}
			mock.ExpectQuery(lookupQuery).WillReturnRows(rows)

			vehicle, ok, err := s.LookupVehicleForDevice(context.Background(), "+79990001122")
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.vehicle, vehicle)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDefaultAssignment_LookupBackendError(t *testing.T) {
	s, mock := newMockAssignment(t)
	mock.ExpectQuery(`SELECT "assigned_bus" FROM "driver"`).WillReturnError(errors.New("connection reset"))

	_, ok, err := s.LookupVehicleForDevice(context.Background(), "+79990001122")
	assert.Error(t, err)
	assert.False(t, ok)
}
