package drive

// Status is the graduated threshold label for a pressure value
type Status string

const (
	StatusAvailable Status = "available"
	StatusElevated  Status = "elevated"
	StatusTriggered Status = "triggered"
	StatusCrisis    Status = "crisis"
	StatusEmergency Status = "emergency"
)

// statusOrder lists the graduated labels from lowest to highest breakpoint.
var statusOrder = []Status{
	StatusAvailable,
	StatusElevated,
	StatusTriggered,
	StatusCrisis,
	StatusEmergency,
}

// DefaultThresholdRatios returns the global breakpoint ratios, each
// multiplied by a drive's base threshold to produce absolute breakpoints.
func DefaultThresholdRatios() map[string]float64 {
	return map[string]float64{
		string(StatusAvailable): 0.30,
		string(StatusElevated):  0.75,
		string(StatusTriggered): 1.0,
		string(StatusCrisis):    1.5,
		string(StatusEmergency): 2.0,
	}
}

// Breakpoint resolves the absolute pressure value for one graduated label.
// A drive-level absolute override wins over the ratio map.
func (d *Drive) Breakpoint(label Status, ratios map[string]float64) float64 {
	if d.Thresholds != nil {
		if abs, ok := d.Thresholds[string(label)]; ok {
			return abs
		}
	}
	if ratios == nil {
		ratios = DefaultThresholdRatios()
	}
	ratio, ok := ratios[string(label)]
	if !ok {
		ratio = DefaultThresholdRatios()[string(label)]
	}
	return ratio * d.Threshold
}

// TriggeredBreakpoint is the pressure at which the scheduler may act.
func (d *Drive) TriggeredBreakpoint(ratios map[string]float64) float64 {
	return d.Breakpoint(StatusTriggered, ratios)
}

// StatusFor resolves the graduated status for the drive's current pressure:
// the highest label whose breakpoint does not exceed pressure, boundaries
// inclusive on the lower side. Below the lowest breakpoint the lowest label
// still applies.
func (d *Drive) StatusFor(ratios map[string]float64) Status {
	status := statusOrder[0]
	for _, label := range statusOrder {
		if d.Pressure >= d.Breakpoint(label, ratios) {
			status = label
		}
	}
	return status
}
