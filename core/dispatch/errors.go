package dispatch

import (
	"errors"
	"fmt"
)

// ErrCapacityInfeasible matches every CapacityError via errors.Is.
var ErrCapacityInfeasible = errors.New("power demand exceeds available capacity")

// ErrNoAvailableUnits is returned when no generation unit has hours.
var ErrNoAvailableUnits = errors.New("no generation unit is available in the period")

// CapacityError reports the power shortfall of an infeasible dispatch.
type CapacityError struct {
	DemandMWh    float64
	AvailableMWh float64
	ShortfallMWh float64
	AfterImport  bool
}

func (e *CapacityError) Error() string {
	stage := "before dispatch"
	if e.AfterImport {
		stage = "after import"
	}
	return fmt.Sprintf("capacity infeasible %s: demand %.2f MWh, available %.2f MWh, shortfall %.2f MWh",
		stage, e.DemandMWh, e.AvailableMWh, e.ShortfallMWh)
}

// Is lets errors.Is(err, ErrCapacityInfeasible) match.
func (e *CapacityError) Is(target error) bool { return target == ErrCapacityInfeasible }
