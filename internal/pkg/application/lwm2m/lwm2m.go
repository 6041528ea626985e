package lwm2m

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/farshidtz/senml/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tlsSkipVerify bool

func init() {
	tlsSkipVerify = env.GetVariableOrDefault(zerolog.Logger{}, "TLS_SKIP_VERIFY", "0") == "1"
}

var tracer = otel.Tracer("integration-traccar/lwm2m")

const (
	TemperatureURN  string = "urn:oma:lwm2m:ext:3303"
	DigitalInputURN string = "urn:oma:lwm2m:ext:3200"
)

type SenderFunc = func(context.Context, string, senml.Pack) error

// Sender forwards the fleet snapshot as LwM2M temperature and door objects.
type Sender struct {
	url    string
	sender SenderFunc
}

func NewSender(url string) *Sender {
	return &Sender{url: url, sender: Send}
}

func (s *Sender) PublishFleet(ctx context.Context, items []domain.FleetItem) error {
	return CreateAndSendAsLWM2M(ctx, items, s.url, s.sender)
}

func CreateAndSendAsLWM2M(ctx context.Context, items []domain.FleetItem, url string, sender SenderFunc) error {
	logger := logging.GetFromContext(ctx)

	var errs []error

	for _, item := range items {
		id := strconv.FormatInt(item.ID, 10)
		log := logger.With().Str("device_id", id).Logger()

		packs := []senml.Pack{
			newDoorPack(id, item.Door == 1, item.LastSeen),
		}

		if item.TempC != nil {
			packs = append(packs, newPack(TemperatureURN, "5700", id, *item.TempC, senml.UnitCelsius, item.LastSeen))
		}

		for _, p := range packs {
			err := sender(ctx, url, p)
			if err != nil {
				log.Error().Err(err).Msg("could not send pack")
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func newPack(baseName, name, id string, v float64, u string, t time.Time) senml.Pack {
	p := senml.Pack{
		senml.Record{
			BaseName:    baseName,
			BaseTime:    float64(t.Unix()),
			Name:        "0",
			StringValue: id,
		},
		newRec(name, v, u, t),
	}
	return p
}

func newRec(name string, v float64, u string, t time.Time) senml.Record {
	return senml.Record{
		Name:  name,
		Value: &v,
		Time:  float64(t.Unix()),
		Unit:  u,
	}
}

func newDoorPack(id string, open bool, t time.Time) senml.Pack {
	return senml.Pack{
		senml.Record{
			BaseName:    DigitalInputURN,
			BaseTime:    float64(t.Unix()),
			Name:        "0",
			StringValue: id,
		},
		senml.Record{
			Name:      "5500",
			BoolValue: &open,
			Time:      float64(t.Unix()),
		},
	}
}

func Send(ctx context.Context, url string, pack senml.Pack) error {
	var err error

	ctx, span := tracer.Start(ctx, "send-object")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var httpClient http.Client

	if tlsSkipVerify {
		customTransport := http.DefaultTransport.(*http.Transport).Clone()
		customTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(customTransport),
		}
	} else {
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	b, err := json.Marshal(pack)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/senml+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf("unexpected response code %d", resp.StatusCode)
	}

	return err
}
