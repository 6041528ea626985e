package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diwise/integration-traccar/domain"
	"github.com/diwise/integration-traccar/internal/pkg/application/session"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Router interface {
	Start(port string) error
}

// Selector receives the control inputs of the presentation layer.
type Selector interface {
	Select(deviceID int64, detailView bool)
}

type routerStruct struct {
	router   chi.Router
	log      zerolog.Logger
	session  *session.Session
	selector Selector
	upgrader websocket.Upgrader
}

func SetupRouter(chiRouter chi.Router, log zerolog.Logger, sess *session.Session, selector Selector) *routerStruct {
	r := &routerStruct{
		router:   chiRouter,
		log:      log,
		session:  sess,
		selector: selector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	chiRouter.Use(middleware.Logger)
	chiRouter.Get("/health", r.health)
	chiRouter.Handle("/metrics", promhttp.Handler())

	chiRouter.Route("/api", func(api chi.Router) {
		api.Get("/fleet", r.fleet)
		api.Get("/fleet/stream", r.stream)
		api.Get("/history", r.history)
		api.Put("/selection", r.selection)
	})

	return r
}

func (r *routerStruct) Start(port string) error {
	r.log.Info().Str("port", port).Msg("starting to listen for connections")
	return http.ListenAndServe(fmt.Sprintf(":%s", port), r.router)
}

func (router *routerStruct) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type fleetRow struct {
	domain.FleetItem
	AlarmTier   domain.AlarmTier   `json:"alarmTier,omitempty"`
	RangeStatus domain.RangeStatus `json:"rangeStatus,omitempty"`
}

type fleetResponse struct {
	session.View
	Vehicles []fleetRow `json:"vehicles"`
}

// newFleetResponse classifies every vehicle at render time. Vehicles without
// a resolved temperature get neither a tier nor a range status.
func newFleetResponse(v session.View) fleetResponse {
	rows := make([]fleetRow, 0, len(v.Fleet))

	for _, item := range v.Fleet {
		row := fleetRow{FleetItem: item}
		if item.TempC != nil {
			row.AlarmTier = domain.Classify(*item.TempC)
			row.RangeStatus = domain.RangeStatusOf(*item.TempC)
		}
		rows = append(rows, row)
	}

	return fleetResponse{View: v, Vehicles: rows}
}

func (router *routerStruct) fleet(w http.ResponseWriter, r *http.Request) {
	router.writeJSON(w, http.StatusOK, newFleetResponse(router.session.View()))
}

func (router *routerStruct) history(w http.ResponseWriter, r *http.Request) {
	router.writeJSON(w, http.StatusOK, router.session.HistoryView())
}

type selectionRequest struct {
	DeviceID   int64 `json:"deviceId"`
	DetailView bool  `json:"detailView"`
}

func (router *routerStruct) selection(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req := selectionRequest{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.DeviceID < 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// a detail view needs a vehicle to show
	if req.DeviceID == 0 && req.DetailView {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	router.selector.Select(req.DeviceID, req.DetailView)

	w.WriteHeader(http.StatusNoContent)
}

// stream pushes the fleet projection to a websocket client, first the current
// one and then one per successful fleet refresh.
func (router *routerStruct) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := router.upgrader.Upgrade(w, r, nil)
	if err != nil {
		router.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := router.session.Subscribe()
	defer unsubscribe()

	if err := conn.WriteJSON(newFleetResponse(router.session.View())); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case v, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(newFleetResponse(v)); err != nil {
				router.log.Debug().Err(err).Msg("fleet stream closed")
				return
			}
		}
	}
}

func (router *routerStruct) writeJSON(w http.ResponseWriter, code int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		router.log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}
