package attributes

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestFirstPresentKeyWins(t *testing.T) {
	is := is.New(t)

	b := Bag{
		Position: map[string]any{"bleTemp1": -9.5, "temp1": -12.0},
	}

	temp, ok := Temperature.Resolve(b)
	is.True(ok)
	is.Equal(temp, -12.0)
}

func TestNullValueCountsAsAbsent(t *testing.T) {
	is := is.New(t)

	b := Bag{
		Position: map[string]any{"temp1": nil, "bleTemp1": "-8.25"},
	}

	temp, ok := Temperature.Resolve(b)
	is.True(ok)
	is.Equal(temp, -8.25)
}

func TestMalformedTemperatureIsUnresolved(t *testing.T) {
	is := is.New(t)

	b := Bag{
		Position: map[string]any{"temp1": "sensor error", "bleTemp1": -10.0},
	}

	_, ok := Temperature.Resolve(b)
	is.True(!ok) // a present but malformed value must not fall through
}

func TestMissingTemperatureIsUnresolvedNotZero(t *testing.T) {
	is := is.New(t)

	temp, ok := Temperature.Resolve(Bag{})
	is.True(!ok)
	is.Equal(temp, 0.0)
}

func TestDeviceLevelFallbacks(t *testing.T) {
	is := is.New(t)

	b := Bag{
		Device: map[string]any{"io2": true, "targetTemp": "-20"},
	}

	is.Equal(Door.Value(b), 1)
	is.Equal(Setpoint.Value(b), -20.0)
}

func TestPositionAttributesTakePrecedenceOverDevice(t *testing.T) {
	is := is.New(t)

	b := Bag{
		Position: map[string]any{"door": 0, "setpoint": -18.0},
		Device:   map[string]any{"door": 1, "setpoint": -10.0},
	}

	is.Equal(Door.Value(b), 0)
	is.Equal(Setpoint.Value(b), -18.0)
}

func TestDefaultsApply(t *testing.T) {
	is := is.New(t)

	is.Equal(Door.Value(Bag{}), 0)
	is.Equal(Setpoint.Value(Bag{}), -15.0)
	is.Equal(Fan.Value(Bag{}), 0)

	b := Bag{Position: map[string]any{"setpoint": "n/a", "door": "maybe"}}
	is.Equal(Setpoint.Value(b), -15.0)
	is.Equal(Door.Value(b), 0)
}

func TestHistoryTemperatureAcceptsGenericKey(t *testing.T) {
	is := is.New(t)

	b := Bag{Position: map[string]any{"temperature": 4.5}}

	_, ok := Temperature.Resolve(b)
	is.True(!ok)

	temp, ok := HistoryTemperature.Resolve(b)
	is.True(ok)
	is.Equal(temp, 4.5)
}

func TestFloatParsing(t *testing.T) {
	is := is.New(t)

	f, ok := Float(json.Number("-3.5"))
	is.True(ok)
	is.Equal(f, -3.5)

	f, ok = Float(" 12 ")
	is.True(ok)
	is.Equal(f, 12.0)

	_, ok = Float(math.NaN())
	is.True(!ok)

	_, ok = Float("NaN")
	is.True(!ok)

	_, ok = Float(true)
	is.True(!ok)
}

func TestFlagParsing(t *testing.T) {
	is := is.New(t)

	v, ok := Flag("true")
	is.True(ok)
	is.Equal(v, 1)

	v, ok = Flag(2.0)
	is.True(ok)
	is.Equal(v, 1)

	v, ok = Flag("0")
	is.True(ok)
	is.Equal(v, 0)
}
