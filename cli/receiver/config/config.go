package config

/*
Описание конфигурационного файла
*/

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

const (
	AssignmentSourceStatic     = "static"
	AssignmentSourcePostgreSQL = "postgresql"
)

// AssignmentSettings источник привязок устройств к транспорту
type AssignmentSettings struct {
	Source     string            `yaml:"source" validate:"oneof=static postgresql"`
	Table      string            `yaml:"table"`
	Devices    map[string]string `yaml:"devices"`
	Connection map[string]string `yaml:"connection" validate:"required_if=Source postgresql"`
}

type Settings struct {
	Host          string   `yaml:"host"`
	TCPPort       string   `yaml:"tcp_port" validate:"numeric"`
	APIPort       string   `yaml:"api_port" validate:"numeric"`
	ConnTTL       int      `yaml:"conn_ttl" validate:"gte=0"`
	IPWhiteList   []string `yaml:"ip_white_list"`
	LogLevel      string   `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	LogFilePath   string   `yaml:"log_file_path"`
	LogMaxAgeDays int      `yaml:"log_max_age_days" validate:"gte=0"`

	StoreShards      int      `yaml:"store_shards" validate:"gte=0"`
	SessionQueueSize int      `yaml:"session_queue_size" validate:"gte=0"`
	MaxSessions      int      `yaml:"max_sessions" validate:"gte=0"`
	AllowedOrigins   []string `yaml:"allowed_origins"`

	StatsCronExpression string `yaml:"stats_cron_expression"`
	MigrationsPath      string `yaml:"migrations_path"`

	Assignments AssignmentSettings           `yaml:"assignments"`
	Persistence map[string]map[string]string `yaml:"persistence"`

	Export        map[string]map[string]string `yaml:"export"`
	ExportFormat  string                       `yaml:"export_format" validate:"oneof=json msgpack protobuf"`
	ExportBuffer  int                          `yaml:"export_buffer" validate:"gte=0"`
	ExportWorkers int                          `yaml:"export_workers" validate:"gte=0"`
}

func (s *Settings) GetEmptyConnTTL() time.Duration {
	return time.Duration(s.ConnTTL) * time.Second
}

func (s *Settings) GetListenAddress() string {
	return s.Host + ":" + s.TCPPort
}

func (s *Settings) GetAPIAddress() string {
	return s.Host + ":" + s.APIPort
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func (s *Settings) setDefaults() {
	if s.TCPPort == "" {
		s.TCPPort = "5020"
	}
	if s.APIPort == "" {
		s.APIPort = "8080"
	}
	if s.StoreShards == 0 {
		s.StoreShards = 32
	}
	if s.SessionQueueSize == 0 {
		s.SessionQueueSize = 64
	}
	if s.StatsCronExpression == "" {
		s.StatsCronExpression = "@every 1m"
	}
	if s.Assignments.Source == "" {
		s.Assignments.Source = AssignmentSourceStatic
	}
	if s.ExportFormat == "" {
		s.ExportFormat = "json"
	}
	if s.ExportBuffer == 0 {
		s.ExportBuffer = 1024
	}
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	c.setDefaults()

	if err = validator.New().Struct(c); err != nil {
		return c, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	if c.Assignments.Source == AssignmentSourceStatic && len(c.Assignments.Devices) == 0 {
		log.Warn("Список привязок устройств пуст, все местоположения будут отклонены")
	}

	return c, nil
}
