package drive

const (
	// AversiveThwartingCount is the consecutive-trigger count at which a
	// drive turns aversive.
	AversiveThwartingCount = 3

	// AversivePressureRatio is the pressure/threshold ratio at which a
	// drive turns aversive regardless of thwarting.
	AversivePressureRatio = 1.5

	// NeutralPressureRatio is the ratio below which a non-aversive drive
	// reads neutral.
	NeutralPressureRatio = 0.30
)

// ComputeValence derives the affective label from pressure and thwarting.
// Thwarting detection and valence share this single rule so they can never
// disagree: a drive is thwarted exactly when its valence is aversive.
func ComputeValence(d *Drive) Valence {
	if d.ThwartingCount >= AversiveThwartingCount {
		return ValenceAversive
	}
	if d.Threshold > 0 && d.Pressure >= AversivePressureRatio*d.Threshold {
		return ValenceAversive
	}
	if d.Threshold <= 0 || d.Pressure < NeutralPressureRatio*d.Threshold {
		return ValenceNeutral
	}
	return ValenceAppetitive
}

// RecomputeValence refreshes the stored valence from its drivers.
func (d *Drive) RecomputeValence() {
	d.Valence = ComputeValence(d)
}

// Thwarted reports whether the drive is in the aversive condition.
func (d *Drive) Thwarted() bool {
	return ComputeValence(d) == ValenceAversive
}
