package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultAssignmentTable = "driver"

// DefaultAssignment привязки из таблицы водителей: mobile_no -> assigned_bus
type DefaultAssignment struct {
	db    *gorm.DB
	table string
}

func NewDefaultAssignment(dsn string, table string) (*DefaultAssignment, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	return NewDefaultAssignmentWithDB(db, table), nil
}

func NewDefaultAssignmentWithDB(db *gorm.DB, table string) *DefaultAssignment {
	if table == "" {
		table = DefaultAssignmentTable
	}
	return &DefaultAssignment{db: db, table: table}
}

func (s *DefaultAssignment) LookupVehicleForDevice(ctx context.Context, device types.DeviceIdentity) (types.VehicleID, bool, error) {
	// водитель может быть зарегистрирован без автобуса: assigned_bus = NULL
	var assigned []sql.NullString

	q := s.db.WithContext(ctx).
		Table(s.table).
		Where("mobile_no = ?", string(device)).
		Limit(1).
		Pluck("assigned_bus", &assigned)
	if q.Error != nil {
		return "", false, fmt.Errorf("не удалось получить привязку устройства %s: %w", device, q.Error)
	}

	if len(assigned) == 0 || !assigned[0].Valid || assigned[0].String == "" {
		return "", false, nil
	}
	return types.VehicleID(assigned[0].String), true, nil
}

func (s *DefaultAssignment) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
