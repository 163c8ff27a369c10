package mqtt

/*
Плагин для отправки событий в MQTT брокер.

host = "localhost"
port = "1883"
user = ""
password = ""
client_id = "livefleet-receiver"
topic = "livefleet/positions"
qos = 0
*/

import (
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultTopic    = "livefleet/positions"
	defaultClientID = "livefleet-receiver"
	timeout         = 5 * time.Second
)

type Connector struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func clientOptions(cfg map[string]string) (*mqtt.ClientOptions, byte, error) {
	qos := 0
	if raw := cfg["qos"]; raw != "" {
		var err error
		if qos, err = strconv.Atoi(raw); err != nil || qos < 0 || qos > 2 {
			return nil, 0, fmt.Errorf("некорректный qos: %s", raw)
		}
	}

	clientID := cfg["client_id"]
	if clientID == "" {
		clientID = defaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", cfg["host"], cfg["port"])).
		SetClientID(clientID).
		SetUsername(cfg["user"]).
		SetPassword(cfg["password"]).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	return opts, byte(qos), nil
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	opts, qos, err := clientOptions(cfg)
	if err != nil {
		return err
	}

	c.qos = qos
	c.topic = cfg["topic"]
	if c.topic == "" {
		c.topic = defaultTopic
	}

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("таймаут подключения к MQTT брокеру")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("не удалось подключиться к MQTT брокеру: %v", err)
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

	token := c.client.Publish(c.topic, c.qos, false, body)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("таймаут отправки сообщения")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	return nil
}
