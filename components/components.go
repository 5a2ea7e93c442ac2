// Package components defines ECS components and value types for the growth simulation.
package components

import "fmt"

// Sink identifies a biomass- or quantity-accumulating destination.
type Sink uint8

const (
	SinkLeaf Sink = iota
	SinkStem
	SinkRoot
	SinkSeed
	SinkStorage
)

// NumSinks is the number of sinks, storage included.
const NumSinks = 5

// NumOrgans is the number of organ sinks (everything but storage).
const NumOrgans = 4

// Sinks lists every sink in a fixed order.
var Sinks = [NumSinks]Sink{SinkLeaf, SinkStem, SinkRoot, SinkSeed, SinkStorage}

// Organs lists the organ sinks in a fixed order.
var Organs = [NumOrgans]Sink{SinkLeaf, SinkStem, SinkRoot, SinkSeed}

// String returns the wire name of the sink.
func (s Sink) String() string {
	switch s {
	case SinkLeaf:
		return "leaf"
	case SinkStem:
		return "stem"
	case SinkRoot:
		return "root"
	case SinkSeed:
		return "seed"
	case SinkStorage:
		return "storage"
	default:
		return fmt.Sprintf("sink(%d)", uint8(s))
	}
}

// IsOrgan reports whether the sink holds organ biomass.
func (s Sink) IsOrgan() bool {
	return s < SinkStorage
}
