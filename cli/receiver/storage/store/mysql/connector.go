package mysql

/*
Плагин для хранения последних местоположений в MySQL.

host = "localhost"
port = "3306"
user = "root"
password = "pass"
database = "livefleet"
table = "vehicle_position"

Таблица создается при подключении, если ее нет.
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
	if err := c.conn.ConnectWithDriver(cfg, implementation.DriverMySQL); err != nil {
		return err
	}

	c.table = cfg["table"]
	if c.table == "" {
		c.table = defaultTable
	}

	if _, err := c.conn.GetConnection().Exec(createTableQuery(c.table)); err != nil {
		return fmt.Errorf("не удалось создать таблицу %s: %v", c.table, err)
	}
	return nil
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		vehicle_id VARCHAR(64) NOT NULL PRIMARY KEY,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		observed_at DATETIME(6) NOT NULL,
		received_at DATETIME(6) NOT NULL
	)`, table)
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (vehicle_id, latitude, longitude, observed_at, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			latitude = VALUES(latitude),
			longitude = VALUES(longitude),
			observed_at = VALUES(observed_at),
			received_at = VALUES(received_at)`, table)
}

func (c *Connector) Save(ctx context.Context, record types.PositionRecord) error {
	_, err := c.conn.GetConnection().ExecContext(ctx, upsertQuery(c.table),
		string(record.VehicleID), record.Latitude, record.Longitude, record.ObservedAt.UTC(), record.ReceivedAt.UTC())
	if err != nil {
		return fmt.Errorf("не удалось вставить запись: %v", err)
	}
	return nil
}

func (c *Connector) Load(ctx context.Context) ([]types.PositionRecord, error) {
	q := fmt.Sprintf("SELECT vehicle_id, latitude, longitude, observed_at, received_at FROM %s", c.table)
	rows, err := c.conn.GetConnection().QueryContext(ctx, q)
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
