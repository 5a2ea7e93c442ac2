package components

// Organ holds the biomass of one organ sink.
// Biomass is mutated only by the state updater.
type Organ struct {
	Sink    Sink
	Biomass float64
}

// Footprint holds quantities derived from organ biomass that the bounds
// calculation reads. The footprint system recomputes it after each tick.
type Footprint struct {
	X, Y   float64 // Center in world units
	Radius float64 // Soil reach in world units (roots)
	Area   float64 // Light-capturing area (leaves)
}

// Contains reports whether (x, y) lies inside the footprint disc.
func (f Footprint) Contains(x, y float64) bool {
	dx := x - f.X
	dy := y - f.Y
	return dx*dx+dy*dy <= f.Radius*f.Radius
}
