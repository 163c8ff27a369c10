package redis

/*
Плагин для хранения последних местоположений в хэше Redis.

host = "localhost"
port = "6379"
password = ""
db = "0"
key = "livefleet:positions"
timeout = "2"
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/go-redis/redis/v8"
)

const defaultKey = "livefleet:positions"

type Connector struct {
	client *redis.Client
	key    string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	db := 0
	if raw := cfg["db"]; raw != "" {
		var err error
		if db, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("не удалось получить db: %v", err)
		}
	}

	timeout := 2 * time.Second
	if raw := cfg["timeout"]; raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("не удалось получить timeout: %v", err)
		}
		timeout = time.Duration(seconds) * time.Second
	}

	c.key = cfg["key"]
	if c.key == "" {
		c.key = defaultKey
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]),
		Password:    cfg["password"],
		DB:          db,
		DialTimeout: timeout,
		ReadTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func encode(record types.PositionRecord) (string, error) {
	b, err := json.Marshal(record)
	return string(b), err
}

func decode(raw string) (types.PositionRecord, error) {
	var rec types.PositionRecord
	err := json.Unmarshal([]byte(raw), &rec)
	return rec, err
}

func (c *Connector) Save(ctx context.Context, record types.PositionRecord) error {
	value, err := encode(record)
	if err != nil {
		return fmt.Errorf("ошибка сериализации местоположения: %v", err)
	}

	if err := c.client.HSet(ctx, c.key, string(record.VehicleID), value).Err(); err != nil {
		return fmt.Errorf("не удалось записать местоположение в Redis: %v", err)
	}
	return nil
}

func (c *Connector) Load(ctx context.Context) ([]types.PositionRecord, error) {
	values, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать местоположения из Redis: %v", err)
	}

	records := make([]types.PositionRecord, 0, len(values))
	for field, raw := range values {
		rec, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("поврежденная запись %s: %v", field, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
