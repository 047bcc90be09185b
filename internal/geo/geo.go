// Package geo implements the office geofence used for clock-in.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371e3

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance in metres between a and b
// using the haversine formula.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

type Office struct {
	Point        Point   `json:"coordinates"`
	RadiusMeters float64 `json:"radius"`
	Address      string  `json:"address"`
}

// Reading is a position reported by the user's device. Accuracy is the
// reported error radius in metres.
type Reading struct {
	Point    Point
	Accuracy float64
}

// NewReading builds a Reading from optional request fields. It returns nil
// when either coordinate is missing, which Check treats as unavailable.
func NewReading(lat, lng, accuracy *float64) *Reading {
	if lat == nil || lng == nil {
		return nil
	}
	r := &Reading{Point: Point{Lat: *lat, Lng: *lng}}
	if accuracy != nil {
		r.Accuracy = *accuracy
	}
	return r
}

// Fix is an accepted reading, rounded to whole metres for storage.
type Fix struct {
	Point    Point
	Distance int
	Accuracy int
}

type OutOfRangeError struct {
	Distance float64
	Radius   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("outside office radius: %dm away (limit %dm)", e.Rounded(), int(math.Round(e.Radius)))
}

// Rounded is the distance in whole metres.
func (e *OutOfRangeError) Rounded() int {
	return int(math.Round(e.Distance))
}

// Check verifies that reading lies within the office radius. The boundary
// is inclusive.
func Check(office Office, reading *Reading) (Fix, error) {
	if reading == nil {
		return Fix{}, ErrLocationUnavailable
	}
	if !reading.Point.Valid() || reading.Accuracy < 0 || math.IsNaN(reading.Accuracy) {
		return Fix{}, ErrInvalidCoordinates
	}

	distance := Distance(reading.Point, office.Point)
	if distance > office.RadiusMeters {
		return Fix{}, &OutOfRangeError{Distance: distance, Radius: office.RadiusMeters}
	}

	return Fix{
		Point:    reading.Point,
		Distance: int(math.Round(distance)),
		Accuracy: int(math.Round(reading.Accuracy)),
	}, nil
}
