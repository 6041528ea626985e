package domain

import (
	"testing"

	"github.com/matryer/is"
)

func TestClassifyBoundariesMatchTheUpperTier(t *testing.T) {
	is := is.New(t)

	is.Equal(Classify(10), TierGrave)
	is.Equal(Classify(25.3), TierGrave)
	is.Equal(Classify(9.9), TierMedio)
	is.Equal(Classify(-1), TierMedio)
	is.Equal(Classify(-1.1), TierLeve)
	is.Equal(Classify(-6), TierLeve)
	is.Equal(Classify(-6.1), TierOK)
	is.Equal(Classify(-30), TierOK)
}

func TestClassifyIsIdempotent(t *testing.T) {
	is := is.New(t)

	for _, temp := range []float64{-20, -6, -1, 0, 10} {
		is.Equal(Classify(temp), Classify(temp))
	}
}

func TestRangeStatusBandIsInclusive(t *testing.T) {
	is := is.New(t)

	is.Equal(RangeStatusOf(-18), InRange)
	is.Equal(RangeStatusOf(-18.1), BelowRange)
	is.Equal(RangeStatusOf(-7), InRange)
	is.Equal(RangeStatusOf(-6.9), AboveRange)
	is.Equal(RangeStatusOf(-12), InRange)
}

func TestTiersAndRangeAreIndependent(t *testing.T) {
	is := is.New(t)

	// ok tier but below the band
	is.Equal(Classify(-25), TierOK)
	is.Equal(RangeStatusOf(-25), BelowRange)

	// ok tier but above the band
	is.Equal(Classify(-6.5), TierOK)
	is.Equal(RangeStatusOf(-6.5), AboveRange)
}

func TestOnlyAlarmTiersHaveDescriptions(t *testing.T) {
	is := is.New(t)

	is.Equal(TierOK.Description(), "")
	is.Equal(TierGrave.Description(), "Temperatura perigosa (≥ +10 °C)")
}
