package postgresql

/*
Настройки, которые могут (а не которые – должны) быть в конфиге для подключения хранилища:

host = "localhost"
port = "5432"
user = "postgres"
password = "postgres"
database = "livefleet"
table = "vehicle_position"
sslmode = "disable"

Таблица создается миграциями при старте приемника.
*/

import (
	"context"
	"fmt"

	"github.com/daniil11ru/livefleet/cli/receiver/connector"
	"github.com/daniil11ru/livefleet/cli/receiver/connector/implementation"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

const defaultTable = "vehicle_position"

type Connector struct {
	conn  connector.Connector
	table string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	if c.conn == nil {
		c.conn = &implementation.Connector{}
	}
	if err := c.conn.ConnectWithDriver(cfg, implementation.DriverPostgres); err != nil {
		return err
	}

	c.table = cfg["table"]
	if c.table == "" {
		c.table = defaultTable
	}
	return nil
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (vehicle_id, latitude, longitude, observed_at, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vehicle_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			observed_at = EXCLUDED.observed_at,
			received_at = EXCLUDED.received_at`, table)
}

func selectQuery(table string) string {
	return fmt.Sprintf("SELECT vehicle_id, latitude, longitude, observed_at, received_at FROM %s", table)
}

func (c *Connector) Save(ctx context.Context, record types.PositionRecord) error {
	_, err := c.conn.GetConnection().ExecContext(ctx, upsertQuery(c.table),
		string(record.VehicleID), record.Latitude, record.Longitude, record.ObservedAt, record.ReceivedAt)
	if err != nil {
		return fmt.Errorf("не удалось вставить запись: %v", err)
	}
	return nil
}

func (c *Connector) Load(ctx context.Context) ([]types.PositionRecord, error) {
	rows, err := c.conn.GetConnection().QueryContext(ctx, selectQuery(c.table))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать местоположения: %v", err)
	}
	defer rows.Close()

	var records []types.PositionRecord
	for rows.Next() {
		var (
			rec       types.PositionRecord
			vehicleID string
		)
		if err := rows.Scan(&vehicleID, &rec.Latitude, &rec.Longitude, &rec.ObservedAt, &rec.ReceivedAt); err != nil {
			return nil, err
		}
		rec.VehicleID = types.VehicleID(vehicleID)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (c *Connector) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
