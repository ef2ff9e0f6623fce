package alerting

import "github.com/aircanary/aircanary/db"

// Pollutant enumerates the reading fields that participate in threshold
// alerting. Temperature and humidity are ambient fields, never alerted on.
type Pollutant string

const (
	CO2  Pollutant = "co2"
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	VOC  Pollutant = "voc"
)

// Pollutants is the fixed evaluation order. Keeping the order fixed makes
// lock acquisition deterministic across concurrent evaluations.
var Pollutants = [4]Pollutant{CO2, PM25, PM10, VOC}

// ordinal returns a stable index used for lock ordering.
func (p Pollutant) ordinal() int {
	switch p {
	case CO2:
		return 0
	case PM25:
		return 1
	case PM10:
		return 2
	case VOC:
		return 3
	}
	return -1
}

// Value extracts this pollutant's observation from a reading.
func (p Pollutant) Value(r db.Reading) float64 {
	switch p {
	case CO2:
		return r.CO2
	case PM25:
		return r.PM25
	case PM10:
		return r.PM10
	case VOC:
		return r.VOC
	}
	return 0
}

// String returns the pollutant's wire name.
func (p Pollutant) String() string {
	return string(p)
}
