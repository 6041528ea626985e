package fiware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	fw "github.com/diwise/context-broker/pkg/datamodels/fiware"
	"github.com/diwise/context-broker/pkg/ngsild/client"
	ngsierrors "github.com/diwise/context-broker/pkg/ngsild/errors"
	"github.com/diwise/context-broker/pkg/ngsild/types"
	"github.com/diwise/context-broker/pkg/ngsild/types/entities"
	. "github.com/diwise/context-broker/pkg/ngsild/types/entities/decorators"
	"github.com/diwise/context-broker/pkg/ngsild/types/properties"
	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("integration-traccar/fiware")

var entityIDPrefix string = fw.DeviceIDPrefix + "traccar:"

// Publisher mirrors each fleet item as a Device entity in an NGSI-LD context broker.
type Publisher struct {
	cbClient client.ContextBrokerClient
}

func NewPublisher(cbClient client.ContextBrokerClient) *Publisher {
	return &Publisher{cbClient: cbClient}
}

func (p *Publisher) PublishFleet(ctx context.Context, items []domain.FleetItem) error {
	var errs []error

	for _, item := range items {
		if err := p.createOrUpdateDevice(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) createOrUpdateDevice(ctx context.Context, item domain.FleetItem) error {
	var err error

	ctx, span := tracer.Start(ctx, "create-or-update-device")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, ctx, logger := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(ctx), ctx)

	headers := map[string][]string{"Content-Type": {"application/ld+json"}}

	decorators := append([]entities.EntityDecoratorFunc{entities.DefaultContext()}, deviceDecorators(item)...)

	entityID := entityIDPrefix + strconv.FormatInt(item.ID, 10)

	var fragment types.EntityFragment
	fragment, err = entities.NewFragment(decorators...)
	if err != nil {
		err = fmt.Errorf("failed to create entity fragment: %w", err)
		return err
	}

	_, err = p.cbClient.MergeEntity(ctx, entityID, fragment, headers)
	if err == nil {
		logger.Debug().Msgf("updated entity %s", entityID)
		return nil
	}

	if !errors.Is(err, ngsierrors.ErrNotFound) {
		logger.Error().Err(err).Msg("failed to merge entity")
	}

	var entity types.Entity
	entity, err = entities.New(entityID, fw.DeviceTypeName, decorators...)
	if err != nil {
		err = fmt.Errorf("failed to create new entity: %w", err)
		return err
	}

	_, err = p.cbClient.CreateEntity(ctx, entity, headers)
	if err != nil {
		err = fmt.Errorf("failed to post entity %s to context broker: %w", entityID, err)
		return err
	}

	logger.Info().Msgf("created entity %s", entityID)

	return nil
}

func deviceDecorators(item domain.FleetItem) []entities.EntityDecoratorFunc {
	observedAt := item.LastSeen.UTC().Format(time.RFC3339)

	decorators := []entities.EntityDecoratorFunc{
		Text("name", item.Label),
		DateTime(properties.DateObserved, observedAt),
		Number("setpoint", item.Setpoint, properties.UnitCode(unitCelsius)),
		Number("doorOpen", float64(item.Door), properties.ObservedAt(observedAt)),
	}

	if item.TempC != nil {
		decorators = append(decorators,
			Number("temperature", *item.TempC, properties.UnitCode(unitCelsius), properties.ObservedAt(observedAt)),
			Text("alarmLevel", string(domain.Classify(*item.TempC))),
			Text("rangeStatus", string(domain.RangeStatusOf(*item.TempC))),
		)
	}

	return decorators
}

const unitCelsius string = "CEL"
