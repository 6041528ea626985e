package fiware

import (
	"testing"
	"time"

	"github.com/diwise/context-broker/pkg/ngsild/types/entities"
	"github.com/diwise/integration-traccar/domain"
	"github.com/matryer/is"
)

func TestThatUnresolvedTemperatureIsNotPublished(t *testing.T) {
	is := is.New(t)

	item := domain.FleetItem{ID: 101, Label: "RFR-2A41", LastSeen: time.Now(), Setpoint: -18}

	is.Equal(len(deviceDecorators(item)), 4)

	temp := -12.5
	item.TempC = &temp

	is.Equal(len(deviceDecorators(item)), 7)
}

func TestThatDeviceDecoratorsBuildAValidEntity(t *testing.T) {
	is := is.New(t)

	temp := 10.2
	item := domain.FleetItem{ID: 103, Label: "RFR-9X11", LastSeen: time.Now(), TempC: &temp, Door: 1, Setpoint: -15}

	decorators := append([]entities.EntityDecoratorFunc{entities.DefaultContext()}, deviceDecorators(item)...)

	_, err := entities.New(entityIDPrefix+"103", "Device", decorators...)
	is.NoErr(err)
}
