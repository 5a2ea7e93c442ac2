package netsync

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/sprout/clock"
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/telemetry"
)

func init() {
	config.MustInit("")
}

func startServer(t *testing.T) (*game.Game, string) {
	t.Helper()
	g := game.NewGameWithOptions(game.Options{})
	srv := NewServer(g, config.Cfg().Sync, telemetry.NewMetrics(prometheus.NewRegistry()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return g, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *WSTransport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := Dial(ctx, url, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func awaitResponse(t *testing.T, tr Transport) AllocationResponse {
	t.Helper()
	var resp AllocationResponse
	require.Eventually(t, func() bool {
		r, ok, err := tr.Poll()
		if err != nil {
			return false
		}
		if ok {
			resp = r
		}
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	return resp
}

func TestRoundTrip(t *testing.T) {
	g, url := startServer(t)
	tr := dial(t, url)
	c := NewClient(config.Cfg().Sync, tr, clock.New(60))

	sent, err := c.TryRequest(Input{
		Percentages: components.Percentages{Leaf: 40, Stem: 20, Root: 40},
		StomataOpen: true,
	})
	require.NoError(t, err)
	require.True(t, sent)

	require.Eventually(t, func() bool {
		if err := c.Update(0, testInput); err != nil {
			return false
		}
		return !c.InFlight()
	}, 5*time.Second, 5*time.Millisecond)

	report := g.Report()
	d := c.Display()
	assert.True(t, d.Running)
	assert.Equal(t, report.Tick, d.Tick)
	assert.InDelta(t, report.Masses.Total(), d.OrganMasses.Total(), 1e-12)
	assert.Equal(t, report.Water, d.Pools.Water)
}

func TestServerAdvancesSession(t *testing.T) {
	g, url := startServer(t)
	tr := dial(t, url)

	req := AllocationRequest{
		Type:            TypeAllocate,
		ProtocolVersion: Version,
		ID:              "0b9f4f3c-6f0e-4d4b-8a39-0d3d1b8a6f11",
		ElapsedTime:     60,
		Percentages:     components.Percentages{Leaf: 40, Stem: 20, Root: 40},
		StomataOpen:     true,
	}
	require.NoError(t, tr.Send(req))

	resp := awaitResponse(t, tr)
	assert.Equal(t, req.ID, resp.ID)
	assert.Empty(t, resp.Code)
	assert.True(t, resp.Running)
	assert.Equal(t, int64(1), resp.Tick)
	assert.InDelta(t, 60.0, resp.SimTime, 1e-12)
	assert.Greater(t, resp.OrganMasses.Total(), config.Cfg().Derived.InitialBiomass)
	assert.Equal(t, g.Report().Tick, resp.Tick)
}

func TestServerRejectsInvalidRequest(t *testing.T) {
	g, url := startServer(t)
	tr := dial(t, url)

	req := AllocationRequest{
		Type:            TypeAllocate,
		ProtocolVersion: Version,
		ID:              "0b9f4f3c-6f0e-4d4b-8a39-0d3d1b8a6f12",
		ElapsedTime:     60,
		Percentages:     components.Percentages{Leaf: 400},
	}
	require.NoError(t, tr.Send(req))

	resp := awaitResponse(t, tr)
	assert.Equal(t, ErrBadRequest, resp.Code)
	assert.True(t, resp.Running, "a rejected request does not end the session")
	assert.Equal(t, int64(0), g.Report().Tick)
}

func TestServerRejectsProtocolVersion(t *testing.T) {
	_, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":             TypeAllocate,
		"protocol_version": "0.1",
		"id":               "0b9f4f3c-6f0e-4d4b-8a39-0d3d1b8a6f13",
	}))

	var resp AllocationResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, ErrBadVersion, resp.Code)
}

func TestServerEchoesIDOnMalformedRequest(t *testing.T) {
	g, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	id := "5d2c1f0a-3b7e-4c9d-9f1a-2e6b8c4d7a10"
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":             TypeAllocate,
		"protocol_version": Version,
		"id":               id,
		"elapsed_time":     "soon",
	}))

	var resp AllocationResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, ErrBadRequest, resp.Code)
	assert.Equal(t, id, resp.ID, "the client matches responses by id")
	assert.Equal(t, int64(0), g.Report().Tick)
}

func TestRequestValidation(t *testing.T) {
	valid := AllocationRequest{
		ProtocolVersion: Version,
		ID:              "0b9f4f3c-6f0e-4d4b-8a39-0d3d1b8a6f14",
		Percentages:     components.Percentages{Leaf: 100, Storage: -20},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *AllocationRequest)
	}{
		{"missing id", func(r *AllocationRequest) { r.ID = "" }},
		{"non uuid id", func(r *AllocationRequest) { r.ID = "abc" }},
		{"negative elapsed", func(r *AllocationRequest) { r.ElapsedTime = -1 }},
		{"storage below range", func(r *AllocationRequest) { r.Percentages.Storage = -150 }},
		{"bad action", func(r *AllocationRequest) {
			r.PendingSpatialActions = []components.SpatialAction{{Resource: components.ResourceWater, Radius: 0, Amount: 1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), components.ErrInvalidAllocation)
		})
	}
}
