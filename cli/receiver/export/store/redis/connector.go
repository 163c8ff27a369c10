package redis

/*
Плагин для публикации событий в канал Redis.

host = "localhost"
port = "6379"
password = ""
db = "0"
channel = "livefleet:events"
*/

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultChannel = "livefleet:events"
	timeout        = 2 * time.Second
)

type Connector struct {
	client  *redis.Client
	channel string
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

	c.channel = cfg["channel"]
	if c.channel == "" {
		c.channel = defaultChannel
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]),
		Password: cfg["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	body, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err = c.client.Publish(ctx, c.channel, body).Err(); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
