package session

import (
	"sync"
	"time"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/integration-traccar/internal/pkg/application/history"
)

type FleetState string

const (
	StateLoading    FleetState = "loading"
	StateIdle       FleetState = "idle"
	StateRefreshing FleetState = "refreshing"
	StateError      FleetState = "error"
)

// Session is the state shared between the polling cycles and the
// presentation layer. The fleet cycle is the only writer of the fleet part
// and the history cycle the only writer of the history part. Readers get
// copies through View and HistoryView.
type Session struct {
	mu sync.RWMutex

	state       FleetState
	fleet       []domain.FleetItem
	fleetErr    string
	hasFleet    bool
	updatedAt   time.Time
	selectedID  int64
	detailView  bool
	history     HistoryView
	subscribers []chan View
}

type View struct {
	State            FleetState         `json:"state"`
	Error            string             `json:"error,omitempty"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	SelectedDeviceID int64              `json:"selectedDeviceId,omitempty"`
	DetailView       bool               `json:"detailView"`
	Fleet            []domain.FleetItem `json:"-"`
}

type HistoryView struct {
	DeviceID int64                     `json:"deviceId"`
	From     time.Time                 `json:"from"`
	To       time.Time                 `json:"to"`
	Samples  []domain.HistoricalSample `json:"samples"`
	Summary  domain.SummaryStats       `json:"summary"`
	Events   []domain.AlarmEvent       `json:"events"`
}

func New() *Session {
	return &Session{
		state: StateLoading,
	}
}

func (s *Session) FetchFleetStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasFleet {
		s.state = StateRefreshing
	} else if s.state != StateError {
		s.state = StateLoading
	}
}

// FetchFleetSucceeded replaces the fleet snapshot. Selection is left to the
// caller so that whoever owns the history cycle sees every change of it.
func (s *Session) FetchFleetSucceeded(items []domain.FleetItem, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fleet = items
	s.hasFleet = true
	s.fleetErr = ""
	s.state = StateIdle
	s.updatedAt = at

	v := s.viewLocked()
	for _, ch := range s.subscribers {
		// replace an unread view with the newer one
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// FetchFleetFailed only surfaces the error while no snapshot has ever been
// fetched. Afterwards the last good snapshot stays in place and it reports
// false so the caller knows the failure was swallowed.
func (s *Session) FetchFleetFailed(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasFleet {
		s.state = StateIdle
		return false
	}

	s.state = StateError
	s.fleetErr = err.Error()
	return true
}

// HistoryWindowUpdated stores the window if it still belongs to the selected
// device. A window fetched for a previous selection is discarded.
func (s *Session) HistoryWindowUpdated(w history.Window, from, to time.Time) bool {
	h := HistoryView{
		DeviceID: w.DeviceID,
		From:     from,
		To:       to,
		Samples:  w.Samples,
		Summary:  history.Summarize(w.Samples),
		Events:   history.AlarmEvents(w.DeviceID, w.Samples),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w.DeviceID != s.selectedID {
		return false
	}

	s.history = h
	return true
}

func (s *Session) HistoryCleared() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = HistoryView{}
}

func (s *Session) Select(deviceID int64, detailView bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID != s.history.DeviceID {
		s.history = HistoryView{}
	}

	s.selectedID = deviceID
	s.detailView = detailView
}

func (s *Session) Selection() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectedID, s.detailView
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		State:            s.state,
		Error:            s.fleetErr,
		UpdatedAt:        s.updatedAt,
		SelectedDeviceID: s.selectedID,
		DetailView:       s.detailView,
		Fleet:            append([]domain.FleetItem{}, s.fleet...),
	}
}

func (s *Session) HistoryView() HistoryView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history
	h.Samples = append([]domain.HistoricalSample{}, s.history.Samples...)
	h.Events = append([]domain.AlarmEvent{}, s.history.Events...)

	return h
}

// Subscribe returns a channel receiving the view after every successful
// fleet refresh. A slow subscriber only ever sees the latest view, it never
// blocks the cycle.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}

	return ch, unsubscribe
}
