package types

import "errors"

var (
	ErrUnknownDevice       = errors.New("устройство не привязано к транспорту")
	ErrInvalidCoordinates  = errors.New("координаты вне допустимого диапазона")
	ErrStale               = errors.New("местоположение устарело")
	ErrPositionNotFound    = errors.New("местоположение транспорта не найдено")
	ErrSessionNotFound     = errors.New("сессия не найдена")
	ErrSessionBackpressure = errors.New("сессия не успевает принимать события")
	ErrTooManySessions     = errors.New("превышено количество сессий")
)

// Code машиночитаемый код ошибки для транспорта
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownDevice):
		return "unknown_device"
	case errors.Is(err, ErrInvalidCoordinates):
		return "invalid_coordinates"
	case errors.Is(err, ErrPositionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrTooManySessions):
		return "too_many_sessions"
	default:
		return "internal_error"
	}
}
