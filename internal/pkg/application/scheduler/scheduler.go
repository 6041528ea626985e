package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/integration-traccar/internal/pkg/application/fleet"
	"github.com/diwise/integration-traccar/internal/pkg/application/history"
	"github.com/diwise/integration-traccar/internal/pkg/application/session"
	"github.com/diwise/integration-traccar/internal/pkg/application/traccar"
	"github.com/diwise/integration-traccar/internal/pkg/infrastructure/metrics"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultHistoryWindow = 6 * time.Hour
)

var ErrCycleBusy = errors.New("previous fetch still in progress")

// FleetSink receives every fleet snapshot after a successful refresh.
type FleetSink interface {
	PublishFleet(ctx context.Context, items []domain.FleetItem) error
}

type FleetSinkFunc func(ctx context.Context, items []domain.FleetItem) error

func (f FleetSinkFunc) PublishFleet(ctx context.Context, items []domain.FleetItem) error {
	return f(ctx, items)
}

type selection struct {
	deviceID   int64
	detailView bool
}

// Scheduler drives the fleet cycle and the history cycle. Both run on the
// same interval but on independent timers. A tick is skipped while the
// previous fetch of the same cycle is outstanding.
type Scheduler struct {
	client   traccar.Client
	session  *session.Session
	interval time.Duration
	window   time.Duration
	sinks    []FleetSink
	clock    func() time.Time

	fleetBusy atomic.Bool

	mu            sync.Mutex
	baseCtx       context.Context
	cancelFleet   context.CancelFunc
	cancelHistory context.CancelFunc
	historyKey    selection
	wg            sync.WaitGroup
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithHistoryWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithSinks(sinks ...FleetSink) Option {
	return func(s *Scheduler) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func New(client traccar.Client, sess *session.Session, opts ...Option) *Scheduler {
	s := &Scheduler{
		client:   client,
		session:  sess,
		interval: DefaultInterval,
		window:   DefaultHistoryWindow,
		clock:    time.Now,
		baseCtx:  context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the fleet cycle, fetching immediately and then on every
// interval until Stop is called or ctx is cancelled. If the session already
// has a device selected in the detail view the history cycle starts too.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()

	if s.cancelFleet != nil {
		s.mu.Unlock()
		return
	}

	s.baseCtx = ctx

	fleetCtx, cancel := context.WithCancel(ctx)
	s.cancelFleet = cancel

	s.wg.Add(1)
	go s.every(fleetCtx, func(ctx context.Context) {
		s.RefreshFleet(ctx)
	})

	s.selectLocked(s.session.Selection())

	s.mu.Unlock()
}

// Stop cancels both cycles and waits for in-flight fetches to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if s.cancelFleet != nil {
		s.cancelFleet()
		s.cancelFleet = nil
	}
	s.stopHistoryLocked()

	s.mu.Unlock()

	s.wg.Wait()
}

// Select updates the device selection and the detail view flag. A change of
// either restarts the history cycle with an immediate fetch, and leaving the
// detail view stops it.
func (s *Scheduler) Select(deviceID int64, detailView bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectLocked(deviceID, detailView)
}

// selectFirst picks the first vehicle of a snapshot when nothing is selected,
// keeping the current detail view flag.
func (s *Scheduler) selectFirst(items []domain.FleetItem) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, detailView := s.session.Selection(); id == 0 {
		s.selectLocked(items[0].ID, detailView)
	}
}

func (s *Scheduler) selectLocked(deviceID int64, detailView bool) {
	s.session.Select(deviceID, detailView)

	key := selection{deviceID: deviceID, detailView: detailView}
	if key == s.historyKey && s.cancelHistory != nil {
		return
	}

	s.stopHistoryLocked()
	s.historyKey = key

	// not started or already stopped, Start picks the selection up
	if s.cancelFleet == nil {
		return
	}

	if !detailView || deviceID == 0 {
		return
	}

	historyCtx, cancel := context.WithCancel(s.baseCtx)
	s.cancelHistory = cancel

	var busy atomic.Bool

	s.wg.Add(1)
	go s.every(historyCtx, func(ctx context.Context) {
		if !busy.CompareAndSwap(false, true) {
			metrics.ObserveSkipped(metrics.CycleHistory)
			logger := logging.GetFromContext(ctx)
			logger.Warn().Int64("device_id", deviceID).Msg("history fetch still in progress, skipping tick")
			return
		}
		defer busy.Store(false)

		s.RefreshHistory(ctx, deviceID)
	})
}

func (s *Scheduler) stopHistoryLocked() {
	if s.cancelHistory != nil {
		s.cancelHistory()
		s.cancelHistory = nil
	}
}

func (s *Scheduler) every(ctx context.Context, refresh func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.spawn(ctx, refresh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(ctx, refresh)
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context, refresh func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		refresh(ctx)
	}()
}

// RefreshFleet fetches devices and positions concurrently and publishes the
// joined snapshot only when both succeed.
func (s *Scheduler) RefreshFleet(ctx context.Context) error {
	logger := logging.GetFromContext(ctx).With().Str("cycle", metrics.CycleFleet).Logger()

	if !s.fleetBusy.CompareAndSwap(false, true) {
		metrics.ObserveSkipped(metrics.CycleFleet)
		logger.Warn().Msg("fleet fetch still in progress, skipping tick")
		return ErrCycleBusy
	}
	defer s.fleetBusy.Store(false)

	s.session.FetchFleetStarted()

	var devices []domain.Device
	var positions []domain.Position

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		devices, err = s.client.GetDevices(gctx)
		return
	})
	g.Go(func() (err error) {
		positions, err = s.client.GetPositions(gctx)
		return
	})

	err := g.Wait()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.ObserveCycle(metrics.CycleFleet, err)

		if s.session.FetchFleetFailed(err) {
			logger.Error().Err(err).Msg("initial fleet fetch failed")
		} else {
			logger.Error().Err(err).Msg("fleet refresh failed, keeping last snapshot")
		}
		return err
	}

	metrics.ObserveCycle(metrics.CycleFleet, nil)

	items := fleet.Join(devices, positions)
	s.selectFirst(items)
	s.session.FetchFleetSucceeded(items, s.clock())
	metrics.ObserveFleet(items)

	logger.Debug().Int("vehicles", len(items)).Msg("fleet snapshot updated")

	if err := s.publish(ctx, items); err != nil {
		logger.Error().Err(err).Msg("failed to publish fleet snapshot")
	}

	return nil
}

// RefreshHistory fetches the trailing window of positions for one device.
// On failure the previous window is kept.
func (s *Scheduler) RefreshHistory(ctx context.Context, deviceID int64) error {
	logger := logging.GetFromContext(ctx).With().Str("cycle", metrics.CycleHistory).Int64("device_id", deviceID).Logger()

	to := s.clock()
	from := to.Add(-s.window)

	positions, err := s.client.GetPositionHistory(ctx, deviceID, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.ObserveCycle(metrics.CycleHistory, err)
		logger.Error().Err(err).Msg("history refresh failed, keeping last window")
		return err
	}

	metrics.ObserveCycle(metrics.CycleHistory, nil)

	w := history.Normalize(deviceID, positions)
	metrics.ObserveDropped(w.Dropped)

	if w.Dropped > 0 {
		logger.Debug().Int("dropped", w.Dropped).Msg("dropped positions without a valid temperature")
	}
	if w.Reordered {
		logger.Warn().Msg("position history was not in time order")
	}

	if !s.session.HistoryWindowUpdated(w, from, to) {
		logger.Debug().Msg("selection changed, discarding history window")
	}

	return nil
}

func (s *Scheduler) publish(ctx context.Context, items []domain.FleetItem) error {
	var errs []error

	for _, sink := range s.sinks {
		if err := sink.PublishFleet(ctx, items); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", sink, err))
		}
	}

	return errors.Join(errs...)
}
