package request

import "time"

type UpdateLocation struct {
	MobileNo   string     `json:"mobileNo" binding:"required"`
	Latitude   *float64   `json:"latitude" binding:"required"`
	Longitude  *float64   `json:"longitude" binding:"required"`
	ObservedAt *time.Time `json:"observed_at"`
}
