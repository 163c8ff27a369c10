package tarantool_queue

/*
Плагин для работы с Tarantool queue.

host = "localhost"
port = "3301"
user = "user"
password = "pass"
max_recons = 5
timeout = 1
reconnect = 1
queue = "positions"
*/

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
}

func options(cfg map[string]string) (tarantool.Opts, error) {
	maxRecons, err := strconv.Atoi(cfg["max_recons"])
	if err != nil {
		return tarantool.Opts{}, fmt.Errorf("не удалось получить MaxReconnects: %v", err)
	}
	timeout, err := strconv.Atoi(cfg["timeout"])
	if err != nil {
		return tarantool.Opts{}, fmt.Errorf("не удалось получить timeout: %v", err)
	}
	reconnect, err := strconv.Atoi(cfg["reconnect"])
	if err != nil {
		return tarantool.Opts{}, fmt.Errorf("не удалось получить reconnect: %v", err)
	}

	return tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}, nil
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	opts, err := options(cfg)
	if err != nil {
		return err
	}

	conStr := fmt.Sprintf("%s:%s", cfg["host"], cfg["port"])
	if c.connection, err = tarantool.Connect(conStr, opts); err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}
	c.queue = queue.New(c.connection, cfg["queue"])

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

	if _, err = c.queue.Put(body); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
