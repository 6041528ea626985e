package traccar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var (
	ErrNetwork = errors.New("traccar request failed")
	ErrParse   = errors.New("traccar response malformed")
)

type Client interface {
	GetDevices(ctx context.Context) ([]domain.Device, error)
	GetPositions(ctx context.Context) ([]domain.Position, error)
	GetPositionHistory(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error)
}

type traccarClient struct {
	baseUrl     string
	accessToken string
	httpClient  http.Client
}

var tracer = otel.Tracer("integration-traccar/traccar")

func New(baseUrl, token string) Client {
	return &traccarClient{
		baseUrl:     strings.TrimRight(baseUrl, "/"),
		accessToken: fmt.Sprintf("Bearer %s", token),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *traccarClient) GetDevices(ctx context.Context) ([]domain.Device, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-devices")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	devices := []domain.Device{}

	err = c.get(ctx, "/api/devices", nil, &devices)
	if err != nil {
		err = fmt.Errorf("failed to retrieve list of devices: %w", err)
		return nil, err
	}

	return devices, nil
}

// GetPositions returns the latest position of every device visible to the token.
func (c *traccarClient) GetPositions(ctx context.Context) ([]domain.Position, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-positions")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	positions := []domain.Position{}

	err = c.get(ctx, "/api/positions", nil, &positions)
	if err != nil {
		err = fmt.Errorf("failed to retrieve latest positions: %w", err)
		return nil, err
	}

	return positions, nil
}

func (c *traccarClient) GetPositionHistory(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-position-history")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if deviceID == 0 {
		err = fmt.Errorf("cannot retrieve position history without a device id")
		return nil, err
	}

	params := url.Values{}
	params.Set("deviceId", strconv.FormatInt(deviceID, 10))
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))

	positions := []domain.Position{}

	err = c.get(ctx, "/api/positions", params, &positions)
	if err != nil {
		err = fmt.Errorf("failed to retrieve position history for device %d: %w", deviceID, err)
		return nil, err
	}

	return positions, nil
}

func (c *traccarClient) get(ctx context.Context, path string, params url.Values, result any) error {
	u := c.baseUrl + path
	if len(params) > 0 {
		u = u + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %s", err.Error())
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNetwork, err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: expected status code %d, got %d", ErrNetwork, http.StatusOK, resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body as bytes: %s", ErrNetwork, err.Error())
	}

	err = json.Unmarshal(respBytes, result)
	if err != nil {
		return fmt.Errorf("%w: failed to unmarshal response: %s", ErrParse, err.Error())
	}

	return nil
}
