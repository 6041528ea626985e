package domain

import "time"

type Device struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	UniqueID   string         `json:"uniqueId"`
	Status     string         `json:"status"`
	LastUpdate time.Time      `json:"lastUpdate"`
	PositionID int64          `json:"positionId,omitempty"`
	GroupID    int64          `json:"groupId,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Model      string         `json:"model,omitempty"`
	Contact    string         `json:"contact,omitempty"`
	Category   string         `json:"category,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Position struct {
	ID         int64          `json:"id"`
	DeviceID   int64          `json:"deviceId"`
	Protocol   string         `json:"protocol,omitempty"`
	ServerTime time.Time      `json:"serverTime"`
	DeviceTime time.Time      `json:"deviceTime"`
	FixTime    time.Time      `json:"fixTime"`
	Valid      bool           `json:"valid"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Altitude   float64        `json:"altitude"`
	Speed      float64        `json:"speed"`
	Course     float64        `json:"course"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Timestamp returns the fix time of the position, or the server time when the
// device did not report one.
func (p Position) Timestamp() time.Time {
	if !p.FixTime.IsZero() {
		return p.FixTime
	}
	return p.ServerTime
}

// FleetItem is the joined, per-device state of one vehicle. TempC is nil when
// no temperature could be resolved, which is not the same thing as 0 °C.
type FleetItem struct {
	ID       int64     `json:"id"`
	Label    string    `json:"label"`
	LastSeen time.Time `json:"lastSeen"`
	TempC    *float64  `json:"tempC"`
	Door     int       `json:"door"`
	Setpoint float64   `json:"setpoint"`
}

type HistoricalSample struct {
	Timestamp time.Time `json:"ts"`
	TempC     float64   `json:"tempC"`
	Door      int       `json:"door"`
	Fan       int       `json:"fan"`
}

type SummaryStats struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	PctInRange float64 `json:"pctFaixa"`
	Count      int     `json:"count"`
}

type AlarmEvent struct {
	Time        time.Time `json:"time"`
	DeviceID    int64     `json:"deviceId"`
	TempC       float64   `json:"tempC"`
	Tier        AlarmTier `json:"nivel"`
	Door        int       `json:"door"`
	Description string    `json:"description"`
}
