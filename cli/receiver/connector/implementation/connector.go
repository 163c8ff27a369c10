package implementation

import (
	"database/sql"
	"fmt"

	"github.com/daniil11ru/livefleet/cli/receiver/connector"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Settings struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

var _ connector.Connector = (*Connector)(nil)

type Connector struct {
	connection *sql.DB
	settings   Settings
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func (c *Connector) FillSettings(settings map[string]string, defaultDriver string) {
	c.settings.Driver = getOptionValue("driver", defaultDriver, settings)

	defaultPort, defaultUser := "5432", "postgres"
	if c.settings.Driver == DriverMySQL {
		defaultPort, defaultUser = "3306", "root"
	}

	c.settings.Host = getOptionValue("host", "localhost", settings)
	c.settings.Port = getOptionValue("port", defaultPort, settings)
	c.settings.User = getOptionValue("user", defaultUser, settings)
	c.settings.Password = getOptionValue("password", "123", settings)
	c.settings.Database = getOptionValue("database", "livefleet", settings)
	c.settings.SSLMode = getOptionValue("sslmode", "disable", settings)
}

// DSN строка подключения для выбранного драйвера
func (s Settings) DSN() (string, error) {
	switch s.Driver {
	case DriverPostgres:
		return fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
			s.Database, s.Host, s.Port, s.User, s.Password, s.SSLMode), nil
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			s.User, s.Password, s.Host, s.Port, s.Database), nil
	default:
		return "", fmt.Errorf("неизвестный драйвер базы данных: %s", s.Driver)
	}
}

func (c *Connector) Connect(settings map[string]string) error {
	return c.ConnectWithDriver(settings, DriverPostgres)
}

func (c *Connector) ConnectWithDriver(settings map[string]string, defaultDriver string) error {
	var err error
	if settings == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.FillSettings(settings, defaultDriver)

	connStr, err := c.settings.DSN()
	if err != nil {
		return err
	}

	if c.connection, err = sql.Open(c.settings.Driver, connStr); err != nil {
		return fmt.Errorf("ошибка подключения к базе данных %s: %v", c.settings.Driver, err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("база данных %s недоступна: %v", c.settings.Driver, err)
	}
	return nil
}

func (c *Connector) GetConnection() *sql.DB {
	return c.connection
}

func (c *Connector) GetDriver() string {
	return c.settings.Driver
}

func (c *Connector) GetSettings() Settings {
	return c.settings
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
