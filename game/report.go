package game

import (
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/systems"
)

// Session end reasons.
const (
	EndSessionLength = "session_length"
	EndSeedGoal      = "seed_goal"
)

// Report is the read-only view of a session after a tick: what the UI
// displays and what the authority sends back to the client.
type Report struct {
	Tick        int64
	SimTime     float64
	Masses      systems.OrganMasses
	Water       components.PoolState
	Nutrient    components.PoolState
	Storage     components.PoolState
	Environment environment.Snapshot
	Infeasible  bool
	Running     bool
	EndReason   string
}
