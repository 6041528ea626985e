package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/matryer/is"
)

func TestSummarizeEmptyWindow(t *testing.T) {
	is := is.New(t)

	stats := Summarize(nil)

	is.Equal(stats, domain.SummaryStats{})
}

func TestSummarizeMinMaxAndPercentInRange(t *testing.T) {
	is := is.New(t)

	stats := Summarize([]domain.HistoricalSample{{TempC: -20}, {TempC: -12}})

	is.Equal(stats.Min, -20.0)
	is.Equal(stats.Max, -12.0)
	is.Equal(stats.PctInRange, 50.0)
	is.Equal(stats.Count, 2)
}

func TestSummarizeSamplesOnBothSidesOfTheBandAreOutOfRange(t *testing.T) {
	is := is.New(t)

	stats := Summarize([]domain.HistoricalSample{{TempC: -20}, {TempC: -5}})

	is.Equal(stats.Min, -20.0)
	is.Equal(stats.Max, -5.0)
	is.Equal(stats.PctInRange, 0.0)
	is.Equal(stats.Count, 2)
}

func TestSummarizeRoundsToOneDecimal(t *testing.T) {
	is := is.New(t)

	stats := Summarize([]domain.HistoricalSample{
		{TempC: -12.34}, {TempC: -7}, {TempC: -18}, {TempC: -6.96}, {TempC: -19}, {TempC: -1.06},
	})

	is.Equal(stats.Min, -19.0)
	is.Equal(stats.Max, -1.1)
	is.Equal(stats.PctInRange, 50.0)

	stats = Summarize([]domain.HistoricalSample{{TempC: -10}, {TempC: -10}, {TempC: 0}})
	is.Equal(stats.PctInRange, 66.7)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	is := is.New(t)

	samples := []domain.HistoricalSample{{TempC: -11.2}, {TempC: -3.4}, {TempC: -15}}

	is.Equal(Summarize(samples), Summarize(samples))
}

func TestNormalizeDropsUnparseableTemperature(t *testing.T) {
	is := is.New(t)

	positions := []domain.Position{
		{DeviceID: 101, Attributes: map[string]any{"temp1": "ERR"}},
	}

	w := Normalize(101, positions)

	is.Equal(len(w.Samples), 0)
	is.Equal(w.Dropped, 1)
}

func TestNormalizeReadsHistoryFields(t *testing.T) {
	is := is.New(t)

	positions := []domain.Position{}
	is.NoErr(json.Unmarshal([]byte(historyResponse), &positions))

	w := Normalize(101, positions)

	is.Equal(len(w.Samples), 3)
	is.Equal(w.Dropped, 1)
	is.True(!w.Reordered)

	is.Equal(w.Samples[0].TempC, -12.1)
	is.Equal(w.Samples[1].TempC, -5.8)
	is.Equal(w.Samples[1].Door, 1)
	is.Equal(w.Samples[1].Fan, 1)
	is.Equal(w.Samples[2].TempC, 11.2)
	is.True(w.Samples[2].Timestamp.Equal(time.Date(2025, 9, 30, 20, 58, 0, 0, time.UTC)))
}

func TestNormalizeSortsOutOfOrderFeed(t *testing.T) {
	is := is.New(t)

	t0 := time.Date(2025, 9, 30, 15, 0, 0, 0, time.UTC)
	positions := []domain.Position{
		{DeviceID: 1, FixTime: t0.Add(time.Hour), Attributes: map[string]any{"temp1": -10.0}},
		{DeviceID: 1, FixTime: t0, Attributes: map[string]any{"temp1": -11.0}},
		{DeviceID: 2, FixTime: t0, Attributes: map[string]any{"temp1": 5.0}},
	}

	w := Normalize(1, positions)

	is.True(w.Reordered)
	is.Equal(len(w.Samples), 2)
	is.Equal(w.Samples[0].TempC, -11.0)
	is.Equal(w.Samples[1].TempC, -10.0)
}

func TestAlarmEventsOnTierChanges(t *testing.T) {
	is := is.New(t)

	t0 := time.Date(2025, 9, 30, 15, 0, 0, 0, time.UTC)
	samples := []domain.HistoricalSample{
		{Timestamp: t0, TempC: -12},
		{Timestamp: t0.Add(30 * time.Minute), TempC: -5.8, Door: 1},
		{Timestamp: t0.Add(60 * time.Minute), TempC: -5.0, Door: 1},
		{Timestamp: t0.Add(90 * time.Minute), TempC: -1.0},
		{Timestamp: t0.Add(120 * time.Minute), TempC: -12},
		{Timestamp: t0.Add(150 * time.Minute), TempC: 11.2, Door: 1},
	}

	events := AlarmEvents(103, samples)

	is.Equal(len(events), 3)
	is.Equal(events[0].Tier, domain.TierLeve)
	is.Equal(events[0].Door, 1)
	is.Equal(events[0].Description, "Acima de -6 °C")
	is.Equal(events[1].Tier, domain.TierMedio)
	is.Equal(events[2].Tier, domain.TierGrave)
	is.Equal(events[2].DeviceID, int64(103))
	is.Equal(events[2].Time, t0.Add(150*time.Minute))
}

func TestNoAlarmEventsForEmptyWindow(t *testing.T) {
	is := is.New(t)

	events := AlarmEvents(1, nil)

	is.Equal(len(events), 0)
}

const historyResponse string = `[
  {"id": 1, "deviceId": 101, "fixTime": "2025-09-30T17:00:00.000+00:00", "attributes": {"temp1": -12.1, "door": false}},
  {"id": 2, "deviceId": 101, "fixTime": "2025-09-30T17:12:00.000+00:00", "attributes": {"temp1": "-5.8", "door": true, "fan": 1}},
  {"id": 3, "deviceId": 101, "fixTime": "2025-09-30T18:00:00.000+00:00", "attributes": {"ignition": true}},
  {"id": 4, "deviceId": 101, "fixTime": "2025-09-30T20:58:00.000+00:00", "attributes": {"temperature": 11.2}}
]`
