package metrics

import (
	"sync"

	"github.com/diwise/integration-traccar/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "thermal_"

	ResultSuccess = "success"
	ResultError   = "error"

	CycleFleet   = "fleet"
	CycleHistory = "history"
)

var (
	registerOnce sync.Once

	pollCycles     *prometheus.CounterVec
	pollSkipped    *prometheus.CounterVec
	samplesDropped prometheus.Counter
	fleetVehicles  prometheus.Gauge
	alarmVehicles  *prometheus.GaugeVec
)

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		pollCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_cycles_total",
				Help: "Total poll cycles by cycle and result",
			},
			[]string{"cycle", "result"},
		)
		pollSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_skipped_total",
				Help: "Ticks skipped because the previous fetch was still outstanding",
			},
			[]string{"cycle"},
		)
		samplesDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_samples_dropped_total",
				Help: "Historical positions dropped for an unparseable temperature",
			},
		)
		fleetVehicles = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "fleet_vehicles",
				Help: "Vehicles in the current fleet snapshot",
			},
		)
		alarmVehicles = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "fleet_alarm_vehicles",
				Help: "Vehicles in the current fleet snapshot by alarm tier",
			},
			[]string{"tier"},
		)

		prometheus.MustRegister(pollCycles, pollSkipped, samplesDropped, fleetVehicles, alarmVehicles)
	})
}

func ObserveCycle(cycle string, err error) {
	if pollCycles == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	pollCycles.WithLabelValues(cycle, result).Inc()
}

func ObserveSkipped(cycle string) {
	if pollSkipped == nil {
		return
	}
	pollSkipped.WithLabelValues(cycle).Inc()
}

func ObserveDropped(count int) {
	if samplesDropped == nil || count <= 0 {
		return
	}
	samplesDropped.Add(float64(count))
}

// ObserveFleet records the size of a snapshot and how many vehicles sit in
// each alarm tier. Vehicles without a resolved temperature are not counted in
// any tier.
func ObserveFleet(items []domain.FleetItem) {
	if fleetVehicles == nil {
		return
	}

	fleetVehicles.Set(float64(len(items)))

	counts := TierCounts(items)
	for _, tier := range []domain.AlarmTier{domain.TierOK, domain.TierLeve, domain.TierMedio, domain.TierGrave} {
		alarmVehicles.WithLabelValues(string(tier)).Set(float64(counts[tier]))
	}
}

func TierCounts(items []domain.FleetItem) map[domain.AlarmTier]int {
	counts := map[domain.AlarmTier]int{}
	for _, item := range items {
		if item.TempC == nil {
			continue
		}
		counts[domain.Classify(*item.TempC)]++
	}
	return counts
}
