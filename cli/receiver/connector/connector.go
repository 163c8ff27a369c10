package connector

import (
	"database/sql"
)

// Connector интерфейс подключения к реляционному хранилищу
type Connector interface {
	GetConnection() *sql.DB
	GetDriver() string
	Connect(map[string]string) error
	ConnectWithDriver(settings map[string]string, defaultDriver string) error
	Close() error
}
