package nats

/*
Плагин для отправки событий в NATS.

servers = "nats://localhost:4222"
subject = "livefleet.positions"
*/

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

const defaultSubject = "livefleet.positions"

type Connector struct {
	connection *nats.Conn
	subject    string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	servers := cfg["servers"]
	if servers == "" {
		servers = fmt.Sprintf("nats://%s:%s", cfg["host"], cfg["port"])
	}

	c.subject = cfg["subject"]
	if c.subject == "" {
		c.subject = defaultSubject
	}

	var err error
	if c.connection, err = nats.Connect(servers, nats.Name("livefleet-receiver")); err != nil {
		return fmt.Errorf("не удалось подключиться к NATS: %v", err)
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

	if err = c.connection.Publish(c.subject, body); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Drain()
}
