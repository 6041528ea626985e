package domain

type AlarmTier string

const (
	TierOK    AlarmTier = "ok"
	TierLeve  AlarmTier = "leve"
	TierMedio AlarmTier = "medio"
	TierGrave AlarmTier = "grave"
)

type RangeStatus string

const (
	BelowRange RangeStatus = "abaixo_da_faixa"
	InRange    RangeStatus = "na_faixa"
	AboveRange RangeStatus = "acima_da_faixa"
)

// Target band, inclusive on both ends.
const (
	TargetBandMin float64 = -18
	TargetBandMax float64 = -7
)

type tierThreshold struct {
	Tier    AlarmTier
	MinTemp float64
}

// evaluated top to bottom, first match wins
var tierThresholds = []tierThreshold{
	{Tier: TierGrave, MinTemp: 10},
	{Tier: TierMedio, MinTemp: -1},
	{Tier: TierLeve, MinTemp: -6},
}

// Classify maps a temperature in °C to its alarm tier. Callers must not pass
// NaN; an unresolved reading has no tier.
func Classify(tempC float64) AlarmTier {
	for _, t := range tierThresholds {
		if tempC >= t.MinTemp {
			return t.Tier
		}
	}
	return TierOK
}

// RangeStatusOf reports where a temperature lies relative to the target band.
func RangeStatusOf(tempC float64) RangeStatus {
	if tempC < TargetBandMin {
		return BelowRange
	}
	if tempC <= TargetBandMax {
		return InRange
	}
	return AboveRange
}

func InTargetBand(tempC float64) bool {
	return RangeStatusOf(tempC) == InRange
}

var tierDescriptions = map[AlarmTier]string{
	TierGrave: "Temperatura perigosa (≥ +10 °C)",
	TierMedio: "Acima de -1 °C",
	TierLeve:  "Acima de -6 °C",
}

func (t AlarmTier) Description() string {
	return tierDescriptions[t]
}
