package history

import (
	"math"
	"sort"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/integration-traccar/internal/pkg/application/attributes"
)

// Window is the normalized history of one device.
type Window struct {
	DeviceID int64
	Samples  []domain.HistoricalSample
	// Dropped counts positions discarded because their temperature did not
	// resolve to a finite number.
	Dropped int
	// Reordered is true when the feed was not in time order and had to be
	// sorted.
	Reordered bool
}

// Normalize converts the positions of one device into historical samples.
// Positions belonging to other devices are ignored. Samples without a
// parseable temperature are dropped, never kept as zero.
func Normalize(deviceID int64, positions []domain.Position) Window {
	w := Window{
		DeviceID: deviceID,
		Samples:  make([]domain.HistoricalSample, 0, len(positions)),
	}

	for _, p := range positions {
		if p.DeviceID != deviceID {
			continue
		}

		bag := attributes.Bag{Position: p.Attributes}

		temp, ok := attributes.HistoryTemperature.Resolve(bag)
		if !ok {
			w.Dropped++
			continue
		}

		w.Samples = append(w.Samples, domain.HistoricalSample{
			Timestamp: p.Timestamp(),
			TempC:     temp,
			Door:      attributes.Door.Value(bag),
			Fan:       attributes.Fan.Value(bag),
		})
	}

	if !sort.SliceIsSorted(w.Samples, byTime(w.Samples)) {
		sort.SliceStable(w.Samples, byTime(w.Samples))
		w.Reordered = true
	}

	return w
}

func byTime(s []domain.HistoricalSample) func(i, j int) bool {
	return func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	}
}

// Summarize reduces a window of samples to min, max and the share of samples
// inside the target band. An empty window yields zeroed stats.
func Summarize(samples []domain.HistoricalSample) domain.SummaryStats {
	if len(samples) == 0 {
		return domain.SummaryStats{}
	}

	min := samples[0].TempC
	max := samples[0].TempC
	inRange := 0

	for _, s := range samples {
		if s.TempC < min {
			min = s.TempC
		}
		if s.TempC > max {
			max = s.TempC
		}
		if domain.InTargetBand(s.TempC) {
			inRange++
		}
	}

	return domain.SummaryStats{
		Min:        round1(min),
		Max:        round1(max),
		PctInRange: round1(float64(inRange) / float64(len(samples)) * 100),
		Count:      len(samples),
	}
}

// AlarmEvents emits an event every time the alarm tier of consecutive samples
// changes to a tier other than ok.
func AlarmEvents(deviceID int64, samples []domain.HistoricalSample) []domain.AlarmEvent {
	events := []domain.AlarmEvent{}
	previous := domain.TierOK

	for _, s := range samples {
		tier := domain.Classify(s.TempC)
		if tier != previous && tier != domain.TierOK {
			events = append(events, domain.AlarmEvent{
				Time:        s.Timestamp,
				DeviceID:    deviceID,
				TempC:       s.TempC,
				Tier:        tier,
				Door:        s.Door,
				Description: tier.Description(),
			})
		}
		previous = tier
	}

	return events
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
