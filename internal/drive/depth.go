package drive

import (
	"fmt"
	"strings"
)

// Depth names how thoroughly a satisfaction event addressed a drive's need.
type Depth string

const (
	DepthShallow  Depth = "shallow"
	DepthModerate Depth = "moderate"
	DepthDeep     Depth = "deep"
	DepthFull     Depth = "full"
)

// depthReductions maps each depth to the fraction of pressure it removes.
var depthReductions = map[Depth]float64{
	DepthShallow:  0.30,
	DepthModerate: 0.50,
	DepthDeep:     0.75,
	DepthFull:     1.00,
}

// TriggerClearRatio is the minimum reduction for a satisfaction to clear a
// pending triggered state. A shallow gesture must not silently dismiss a
// spawned session.
const TriggerClearRatio = 0.50

// InvalidDepthError is returned when a depth string cannot be resolved.
type InvalidDepthError struct {
	Value string
}

func (e *InvalidDepthError) Error() string {
	return fmt.Sprintf("invalid satisfaction depth %q (expected shallow, moderate, deep, or full)", e.Value)
}

// ParseDepth resolves a depth name or single-letter alias, case-insensitive.
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shallow", "s":
		return DepthShallow, nil
	case "moderate", "m":
		return DepthModerate, nil
	case "deep", "d":
		return DepthDeep, nil
	case "full", "f":
		return DepthFull, nil
	}
	return "", &InvalidDepthError{Value: s}
}

// Reduction returns the pressure fraction this depth removes.
func (d Depth) Reduction() float64 {
	return depthReductions[d]
}

// ClearsTrigger reports whether this depth is enough to release a drive from
// the triggered set.
func (d Depth) ClearsTrigger() bool {
	return d.Reduction() >= TriggerClearRatio
}
