package fleet

import (
	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/integration-traccar/internal/pkg/application/attributes"
)

// Join combines each device with its current position into a FleetItem, one
// per device and in device order.
//
// The current position of a device is the last one referencing it in feed
// order. Traccar returns the latest position per device from /api/positions,
// but if a feed carries several positions for a device that are not time
// ordered, the last one in the slice wins regardless of its timestamp.
func Join(devices []domain.Device, positions []domain.Position) []domain.FleetItem {
	latest := make(map[int64]domain.Position, len(positions))
	for _, p := range positions {
		latest[p.DeviceID] = p
	}

	items := make([]domain.FleetItem, 0, len(devices))

	for _, d := range devices {
		bag := attributes.Bag{Device: d.Attributes}
		lastSeen := d.LastUpdate

		if p, ok := latest[d.ID]; ok {
			bag.Position = p.Attributes
			if ts := p.Timestamp(); !ts.IsZero() {
				lastSeen = ts
			}
		}

		item := domain.FleetItem{
			ID:       d.ID,
			Label:    label(d),
			LastSeen: lastSeen,
			Door:     attributes.Door.Value(bag),
			Setpoint: attributes.Setpoint.Value(bag),
		}

		if temp, ok := attributes.Temperature.Resolve(bag); ok {
			item.TempC = &temp
		}

		items = append(items, item)
	}

	return items
}

func label(d domain.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.UniqueID
}
