package rabbitmq

/*
Плагин для отправки событий в RabbitMQ.

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
exchange = "livefleet"
exchange_type = "topic"
key = "positions"
*/

import (
	"fmt"

	"github.com/streadway/amqp"
)

type Connector struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	if cfg["exchange"] == "" {
		return fmt.Errorf("не задан exchange")
	}

	c.config = cfg
	exchangeType := c.config["exchange_type"]
	if exchangeType == "" {
		exchangeType = amqp.ExchangeTopic
	}

	var err error
	conStr := fmt.Sprintf("amqp://%s:%s@%s:%s/", c.config["user"], c.config["password"], c.config["host"], c.config["port"])
	if c.connection, err = amqp.Dial(conStr); err != nil {
		return fmt.Errorf("не удалось подключиться к RabbitMQ: %v", err)
	}

	if c.channel, err = c.connection.Channel(); err != nil {
		return fmt.Errorf("не удалось открыть канал RabbitMQ: %v", err)
	}

	if err = c.channel.ExchangeDeclare(c.config["exchange"], exchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("не удалось объявить exchange: %v", err)
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

	if err = c.channel.Publish(c.config["exchange"], c.config["key"], false, false, amqp.Publishing{
		ContentType: "application/octet-stream",
		Body:        body,
	}); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
