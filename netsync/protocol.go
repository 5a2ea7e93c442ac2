// Package netsync implements the client/authority allocation round trip:
// a single in-flight request per interval of game time, with local clock
// backpressure while the authority is slow.
package netsync

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/game"
)

// Version is the wire protocol version. Messages with another version are rejected.
const Version = "1.0"

// Message types.
const (
	TypeAllocate = "ALLOCATE"
	TypeResult   = "RESULT"
)

// Error codes carried in AllocationResponse.Code.
const (
	ErrBadRequest = "E_BAD_REQUEST"
	ErrBadVersion = "E_BAD_VERSION"
	ErrInternal   = "E_INTERNAL"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BaseMessage lets us route JSON messages by type.
// ID is carried so malformed requests can still be answered.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
}

// DecodeBase reads the routing fields of a raw message.
func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// AllocationRequest is sent by the client once per request interval.
type AllocationRequest struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	ID              string `json:"id" validate:"required,uuid"`

	ElapsedTime           float64                    `json:"elapsed_time" validate:"gte=0"`
	Percentages           components.Percentages     `json:"percentages"`
	StomataOpen           bool                       `json:"stomata_open"`
	PendingSpatialActions []components.SpatialAction `json:"pending_spatial_actions" validate:"dive"`
}

// Validate checks a decoded request at the network boundary.
func (r AllocationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", components.ErrInvalidAllocation, err)
	}
	return nil
}

// Allocation returns the engine input carried by the request.
func (r AllocationRequest) Allocation() components.GrowthAllocation {
	return components.GrowthAllocation{
		Percentages: r.Percentages,
		ElapsedTime: r.ElapsedTime,
		StomataOpen: r.StomataOpen,
	}
}

// OrganMasses holds biomass by sink name on the wire.
type OrganMasses struct {
	Leaf float64 `json:"leaf"`
	Stem float64 `json:"stem"`
	Root float64 `json:"root"`
	Seed float64 `json:"seed"`
}

// Total returns the summed organ biomass.
func (m OrganMasses) Total() float64 {
	return m.Leaf + m.Stem + m.Root + m.Seed
}

// PoolStates holds the internal pools on the wire.
type PoolStates struct {
	Water    components.PoolState `json:"water"`
	Nutrient components.PoolState `json:"nutrient"`
	Storage  components.PoolState `json:"storage"`
}

// AllocationResponse answers exactly one AllocationRequest, matched by ID.
type AllocationResponse struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`

	OrganMasses OrganMasses          `json:"organ_masses_by_sink"`
	Pools       PoolStates           `json:"pool_states"`
	Environment environment.Snapshot `json:"environment_snapshot"`
	SimTime     float64              `json:"sim_time"`
	Tick        int64                `json:"tick"`
	Infeasible  bool                 `json:"infeasible"`
	Running     bool                 `json:"running"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewResponse builds a response from a session report.
func NewResponse(id string, r game.Report) AllocationResponse {
	return AllocationResponse{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		OrganMasses: OrganMasses{
			Leaf: r.Masses[components.SinkLeaf],
			Stem: r.Masses[components.SinkStem],
			Root: r.Masses[components.SinkRoot],
			Seed: r.Masses[components.SinkSeed],
		},
		Pools: PoolStates{
			Water:    r.Water,
			Nutrient: r.Nutrient,
			Storage:  r.Storage,
		},
		Environment: r.Environment,
		SimTime:     r.SimTime,
		Tick:        r.Tick,
		Infeasible:  r.Infeasible,
		Running:     r.Running,
	}
}

// errorResponse reports a request the authority could not serve.
// The session keeps running.
func errorResponse(id, code, msg string) AllocationResponse {
	return AllocationResponse{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		Running:         true,
		Code:            code,
		Message:         msg,
	}
}
