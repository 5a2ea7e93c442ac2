package components

// ResourcePool is a capacity-bounded internal reservoir (water, nutrient, storage).
// Available always stays within [0, Capacity].
type ResourcePool struct {
	available float64
	capacity  float64
}

// NewResourcePool creates a pool clamped to its capacity.
func NewResourcePool(available, capacity float64) *ResourcePool {
	p := &ResourcePool{}
	p.SetCapacity(capacity)
	p.available = available
	p.clamp()
	return p
}

// Available returns the current amount.
func (p *ResourcePool) Available() float64 { return p.available }

// Capacity returns the maximum amount.
func (p *ResourcePool) Capacity() float64 { return p.capacity }

// Missing returns how much the pool could still absorb.
func (p *ResourcePool) Missing() float64 { return p.capacity - p.available }

// Fill returns Available/Capacity, or 0 for an empty-capacity pool.
func (p *ResourcePool) Fill() float64 { return p.State().Fill() }

// Drain removes up to amount and returns the part that could not be met.
// Negative amounts are ignored.
func (p *ResourcePool) Drain(amount float64) (unmet float64) {
	if amount <= 0 {
		return 0
	}
	if amount > p.available {
		unmet = amount - p.available
		p.available = 0
		return unmet
	}
	p.available -= amount
	return 0
}

// Replenish adds up to the free capacity and returns the discarded overflow.
// Negative amounts are ignored.
func (p *ResourcePool) Replenish(amount float64) (overflow float64) {
	if amount <= 0 {
		return 0
	}
	p.available += amount
	if p.available > p.capacity {
		overflow = p.available - p.capacity
		p.available = p.capacity
	}
	return overflow
}

// Apply drains or replenishes by a signed delta.
func (p *ResourcePool) Apply(delta float64) {
	if delta < 0 {
		p.Drain(-delta)
		return
	}
	p.Replenish(delta)
}

// SetCapacity changes the capacity and re-clamps the current amount.
func (p *ResourcePool) SetCapacity(capacity float64) {
	if capacity < 0 {
		capacity = 0
	}
	p.capacity = capacity
	p.clamp()
}

// PoolState is a value snapshot of a pool.
type PoolState struct {
	Available float64 `json:"available"`
	Capacity  float64 `json:"capacity"`
}

// State returns a snapshot of the pool.
func (p *ResourcePool) State() PoolState {
	return PoolState{Available: p.available, Capacity: p.capacity}
}

// Fill returns available as a fraction of capacity.
func (s PoolState) Fill() float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return s.Available / s.Capacity
}

func (p *ResourcePool) clamp() {
	if p.available < 0 {
		p.available = 0
	}
	if p.available > p.capacity {
		p.available = p.capacity
	}
}
