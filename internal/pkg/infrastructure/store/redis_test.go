package store

import (
	"testing"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/matryer/is"
)

func TestVehicleStateKey(t *testing.T) {
	is := is.New(t)

	is.Equal(VehicleStateKey(101), "vehicle:101:thermal")
}

func TestVehicleStateWithoutTemperature(t *testing.T) {
	is := is.New(t)

	state := vehicleState(domain.FleetItem{ID: 1, Label: "RFR-2A41", LastSeen: time.Unix(1759265880, 0), Setpoint: -15})

	is.Equal(state["temp_c"], "")
	is.Equal(state["alarm_tier"], "")
	is.Equal(state["last_seen"], int64(1759265880))
}

func TestVehicleStateClassifiesTemperature(t *testing.T) {
	is := is.New(t)

	temp := -0.5
	state := vehicleState(domain.FleetItem{ID: 1, TempC: &temp})

	is.Equal(state["temp_c"], -0.5)
	is.Equal(state["alarm_tier"], "medio")
	is.Equal(state["range"], "acima_da_faixa")
}
