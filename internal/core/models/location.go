package models

import "time"

// Location is the last known user position, attached to outbound chat messages
type Location struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}

// NewLocation stamps a coordinate pair with the capture time
func NewLocation(lat, lng float64, at time.Time) Location {
	return Location{Lat: lat, Lng: lng, Timestamp: at.UnixMilli()}
}

// AddressLocation is a manually selected address
type AddressLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Address   string  `json:"address"`
	Timestamp int64   `json:"timestamp"`
}
