package netsync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/telemetry"
)

// Authority advances the authoritative session for one request.
type Authority interface {
	Advance(alloc components.GrowthAllocation, actions []components.SpatialAction) (game.Report, error)
}

// Server serves allocation requests over websocket connections.
// Requests from all connections are applied to the authority one at a time.
type Server struct {
	authority Authority
	metrics   *telemetry.Metrics
	cfg       config.SyncConfig

	mu       sync.Mutex
	upgrader websocket.Upgrader
}

// NewServer creates a server in front of authority. metrics may be nil.
func NewServer(authority Authority, cfg config.SyncConfig, metrics *telemetry.Metrics) *Server {
	return &Server{
		authority: authority,
		metrics:   metrics,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		slog.Info("client connected", "remote", r.RemoteAddr)

		for {
			if s.cfg.ReadTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(seconds(s.cfg.ReadTimeout)))
			}
			_, msg, err := conn.ReadMessage()
			if err != nil {
				slog.Info("client disconnected", "remote", r.RemoteAddr, "reason", err.Error())
				return
			}

			resp, ok := s.handle(msg)
			if !ok {
				continue
			}
			if s.cfg.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(seconds(s.cfg.WriteTimeout)))
			}
			if err := conn.WriteJSON(resp); err != nil {
				slog.Warn("failed to write response", "id", resp.ID, "error", err)
				return
			}
		}
	}
}

// handle decodes and serves one message. Messages that are not allocation
// requests are ignored.
func (s *Server) handle(msg []byte) (AllocationResponse, bool) {
	base, err := DecodeBase(msg)
	if err != nil || base.Type != TypeAllocate {
		return AllocationResponse{}, false
	}

	var req AllocationRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.reject()
		return errorResponse(base.ID, ErrBadRequest, err.Error()), true
	}
	if req.ProtocolVersion != Version {
		s.reject()
		return errorResponse(req.ID, ErrBadVersion, "unsupported protocol_version "+req.ProtocolVersion), true
	}
	if err := req.Validate(); err != nil {
		s.reject()
		return errorResponse(req.ID, ErrBadRequest, err.Error()), true
	}

	return s.serve(req), true
}

func (s *Server) serve(req AllocationRequest) AllocationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report, err := s.authority.Advance(req.Allocation(), req.PendingSpatialActions)
	if err != nil {
		if errors.Is(err, components.ErrInvalidAllocation) {
			s.reject()
			return errorResponse(req.ID, ErrBadRequest, err.Error())
		}
		slog.Error("tick failed", "id", req.ID, "error", err)
		s.observe("error", report, time.Since(start))
		return errorResponse(req.ID, ErrInternal, err.Error())
	}

	outcome := "solved"
	switch {
	case report.Infeasible:
		outcome = "infeasible"
	case req.ElapsedTime == 0 || !req.Percentages.AnyActive():
		outcome = "skipped"
	}
	s.observe(outcome, report, time.Since(start))

	return NewResponse(req.ID, report)
}

func (s *Server) reject() {
	if s.metrics != nil {
		s.metrics.Rejected.Inc()
	}
}

func (s *Server) observe(outcome string, r game.Report, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Ticks.WithLabelValues(outcome).Inc()
	s.metrics.TickDuration.Observe(d.Seconds())
	s.metrics.SimTime.Set(r.SimTime)
	for _, o := range components.Organs {
		s.metrics.Biomass.WithLabelValues(o.String()).Set(r.Masses[o])
	}
	for name, p := range map[string]components.PoolState{
		"water": r.Water, "nutrient": r.Nutrient, "storage": r.Storage,
	} {
		s.metrics.PoolFill.WithLabelValues(name).Set(p.Fill())
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
