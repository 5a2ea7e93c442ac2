package netsync

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/sprout/clock"
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

var (
	// ErrAborted is returned once the client gave up waiting on the authority.
	ErrAborted = errors.New("authority unresponsive, sync aborted")
	// ErrSessionEnded is returned once the authority reported running: false.
	ErrSessionEnded = errors.New("session ended")
)

// State is the sync client's position in the request cycle.
type State uint8

const (
	StateIdle State = iota
	StateRequesting
	StateWaitingSlow
	StateApplying
	StateAborted
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateWaitingSlow:
		return "waiting_slow"
	case StateApplying:
		return "applying"
	case StateAborted:
		return "aborted"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Input is the player's current allocation, read when a request fires.
type Input struct {
	Percentages components.Percentages
	StomataOpen bool
}

// DisplayState is the last authority-confirmed organism state.
type DisplayState struct {
	OrganMasses OrganMasses
	Pools       PoolStates
	SimTime     float64
	Tick        int64
	Infeasible  bool
	Running     bool
}

// RoundTrip describes one completed request, for telemetry.
type RoundTrip struct {
	Seq     int64
	ID      string
	Elapsed float64 // Simulated seconds covered by the request
	Latency time.Duration
	Pauses  int // Backpressure pauses while waiting
	Running bool
}

// inFlight is the single outstanding request. A nil slot means none.
type inFlight struct {
	id      string
	sentAt  time.Time
	elapsed float64
}

// Client drives the allocation round trip from the local frame loop.
// It is not safe for concurrent use; call it from the loop that owns the clock.
type Client struct {
	cfg       config.SyncConfig
	transport Transport
	clock     *clock.SimulationClock

	state State
	slot  *inFlight

	waited    float64 // Real seconds the current request has been outstanding
	pauseLeft float64 // Real seconds left in the current grace pause
	pauses    int     // Consecutive grace pauses for the current request

	lastRequestAt float64 // Simulated time of the last request
	seq           int64
	pending       []components.SpatialAction

	display     DisplayState
	onRoundTrip func(RoundTrip)
	onPause     func()
}

// NewClient creates a sync client over transport, pacing requests with clk.
func NewClient(cfg config.SyncConfig, transport Transport, clk *clock.SimulationClock) *Client {
	return &Client{
		cfg:           cfg,
		transport:     transport,
		clock:         clk,
		lastRequestAt: clk.Now(),
		display:       DisplayState{Running: true},
	}
}

// OnRoundTrip registers a callback for completed round trips.
func (c *Client) OnRoundTrip(fn func(RoundTrip)) { c.onRoundTrip = fn }

// OnPause registers a callback for each backpressure pause.
func (c *Client) OnPause(fn func()) { c.onPause = fn }

// State returns the current state.
func (c *Client) State() State { return c.state }

// InFlight reports whether a request is outstanding.
func (c *Client) InFlight() bool { return c.slot != nil }

// Display returns the last confirmed organism state.
func (c *Client) Display() DisplayState { return c.display }

// QueueAction queues a spatial action for the next request.
func (c *Client) QueueAction(a components.SpatialAction) {
	c.pending = append(c.pending, a)
}

// Update advances the client by one local frame of realDt seconds: it polls
// for a response, applies backpressure while waiting, advances the clock and
// fires a request when a request interval of game time has passed.
func (c *Client) Update(realDt float64, in Input) error {
	switch c.state {
	case StateAborted:
		return ErrAborted
	case StateEnded:
		return ErrSessionEnded
	}

	if c.slot != nil {
		resp, ok, err := c.transport.Poll()
		if err != nil {
			return fmt.Errorf("polling authority: %w", err)
		}
		if ok {
			if err := c.receive(resp); err != nil {
				return err
			}
		}
	}

	if c.slot != nil {
		if err := c.wait(realDt); err != nil {
			return err
		}
	}

	c.clock.Advance(realDt)

	if c.slot == nil && c.clock.Now()-c.lastRequestAt >= c.cfg.RequestInterval {
		if _, err := c.TryRequest(in); err != nil {
			return err
		}
	}
	return nil
}

// TryRequest sends one allocation request unless one is already in flight,
// in which case the attempt is dropped and reports false.
func (c *Client) TryRequest(in Input) (bool, error) {
	if c.slot != nil || c.state == StateAborted || c.state == StateEnded {
		return false, nil
	}

	now := c.clock.Now()
	req := AllocationRequest{
		Type:                  TypeAllocate,
		ProtocolVersion:       Version,
		ID:                    uuid.NewString(),
		ElapsedTime:           now - c.lastRequestAt,
		Percentages:           in.Percentages,
		StomataOpen:           in.StomataOpen,
		PendingSpatialActions: c.pending,
	}
	if err := c.transport.Send(req); err != nil {
		return false, err
	}

	c.slot = &inFlight{id: req.ID, sentAt: time.Now(), elapsed: req.ElapsedTime}
	c.pending = nil
	c.lastRequestAt = now
	c.waited = 0
	c.pauses = 0
	c.state = StateRequesting
	c.seq++
	return true, nil
}

// wait accumulates real waiting time and pauses the clock once the
// authority is slower than MaxWait. Each pause lasts GracePause and is
// re-armed until a response arrives or MaxPauseRetries is reached.
func (c *Client) wait(realDt float64) error {
	c.waited += realDt

	if c.state == StateWaitingSlow {
		c.pauseLeft -= realDt
		if c.pauseLeft > 0 {
			return nil
		}
		if c.cfg.MaxPauseRetries > 0 && c.pauses >= c.cfg.MaxPauseRetries {
			c.state = StateAborted
			slog.Error("authority unresponsive, aborting",
				"id", c.slot.id, "waited", c.waited, "pauses", c.pauses)
			return ErrAborted
		}
		c.startPause()
		return nil
	}

	if c.waited >= c.cfg.MaxWait {
		c.state = StateWaitingSlow
		c.clock.Pause()
		c.startPause()
	}
	return nil
}

func (c *Client) startPause() {
	c.pauses++
	c.pauseLeft = c.cfg.GracePause
	slog.Warn("authority slow, pausing clock",
		"id", c.slot.id, "waited", c.waited, "pause", c.pauses)
	if c.onPause != nil {
		c.onPause()
	}
}

// receive applies the response to the in-flight request and frees the slot.
func (c *Client) receive(resp AllocationResponse) error {
	if resp.ID != c.slot.id {
		slog.Warn("dropping response for unknown request", "id", resp.ID, "want", c.slot.id)
		return nil
	}

	c.state = StateApplying
	slot := c.slot
	c.slot = nil
	pauses := c.pauses
	c.waited = 0
	c.pauses = 0
	c.pauseLeft = 0
	if c.clock.Paused() {
		c.clock.Unpause()
	}

	if resp.Code != "" {
		// The rejected interval was never simulated; carry it into the next request.
		c.lastRequestAt -= slot.elapsed
		slog.Warn("authority rejected request", "id", resp.ID, "code", resp.Code, "message", resp.Message)
	} else {
		c.display = DisplayState{
			OrganMasses: resp.OrganMasses,
			Pools:       resp.Pools,
			SimTime:     resp.SimTime,
			Tick:        resp.Tick,
			Infeasible:  resp.Infeasible,
			Running:     resp.Running,
		}
	}

	if c.onRoundTrip != nil {
		c.onRoundTrip(RoundTrip{
			Seq:     c.seq,
			ID:      slot.id,
			Elapsed: slot.elapsed,
			Latency: time.Since(slot.sentAt),
			Pauses:  pauses,
			Running: resp.Running,
		})
	}

	if !resp.Running {
		c.state = StateEnded
		slog.Info("authority ended the session", "tick", resp.Tick, "sim_time", resp.SimTime)
		return ErrSessionEnded
	}
	c.state = StateIdle
	return nil
}
