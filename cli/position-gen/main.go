package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

/*
Position generator.

Util sends a single position report to the receiver.

Usage:
  -mobile string
    	Device identity (require)
  -lat float
    	Latitude
  -lon float
    	Longitude
  -time string
    	Timestamp in RFC 3339 format, receiver time is used when empty
  -mode string
    	Transport: tcp or http (default "tcp")
  -server string
    	Receiver address in format <ip>:<port> (default "localhost:5020")
  -timeout int
    	Reply waiting time in seconds, Default: 5

Example

```
./position-gen --mobile +79990001122 --lat 55.75 --lon 37.61 --time 2024-05-01T10:00:00Z --server localhost:5020
./position-gen --mode http --mobile +79990001122 --lat 55.75 --lon 37.61 --server localhost:8080
```
*/

func main() {
	mobile := ""
	ts := ""
	lat := 0.0
	lon := 0.0
	mode := ""
	server := ""
	replyTimeout := 0

	flag.StringVar(&mobile, "mobile", "", "Идентификатор устройства (обязательно)")
	flag.StringVar(&ts, "time", "", "Метка времени в формате RFC 3339")
	flag.Float64Var(&lat, "lat", 0, "Широта")
	flag.Float64Var(&lon, "lon", 0, "Долгота")
	flag.StringVar(&mode, "mode", "tcp", "Транспорт: tcp или http")
	flag.StringVar(&server, "server", "localhost:5020", "Адрес приёмника в формате <ip>:<port>")
	flag.IntVar(&replyTimeout, "timeout", 5, "Время ожидания ответа в секундах, по умолчанию 5")

	flag.Parse()

	if mobile == "" {
		fmt.Println("Требуется идентификатор устройства, смотрите помощь (-h)")
		os.Exit(1)
	}

	var observedAt *time.Time
	if ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			fmt.Println("Ошибка парсинга метки времени: ", err)
			os.Exit(1)
		}
		observedAt = &parsed
	}

	timeout := time.Duration(replyTimeout) * time.Second

	var (
		reply string
		err   error
	)
	switch mode {
	case "tcp":
		reply, err = sendLine(server, formatLine(mobile, lat, lon, observedAt), timeout)
	case "http":
		reply, err = postLocation(server, mobile, lat, lon, observedAt, timeout)
	default:
		fmt.Println("Неверный транспорт, используйте tcp или http в качестве значения параметра -mode")
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Ошибка отправки позиции: ", err)
		os.Exit(1)
	}

	fmt.Println("Ответ приёмника: ", reply)
	if strings.HasPrefix(reply, "ERR") {
		os.Exit(1)
	}
	os.Exit(0)
}

func formatLine(mobile string, lat, lon float64, observedAt *time.Time) string {
	line := fmt.Sprintf("%s;%f;%f", mobile, lat, lon)
	if observedAt != nil {
		line += fmt.Sprintf(";%d", observedAt.Unix())
	}
	return line
}

func sendLine(server, line string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", server, timeout)
	if err != nil {
		return "", fmt.Errorf("ошибка соединения: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("ошибка записи на сервер: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("ошибка чтения с сервера: %w", err)
	}

	return strings.TrimSpace(reply), nil
}

func postLocation(server, mobile string, lat, lon float64, observedAt *time.Time, timeout time.Duration) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"mobileNo":    mobile,
		"latitude":    lat,
		"longitude":   lon,
		"observed_at": observedAt,
	})
	if err != nil {
		return "", err
	}

	client := http.Client{Timeout: timeout}
	resp, err := client.Post("http://"+server+"/api/location/update-location", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ошибка запроса: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("ERR %d %s", resp.StatusCode, data), nil
	}
	return string(data), nil
}
