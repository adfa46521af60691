package solver

import (
	"errors"
	"fmt"

	"github.com/kilianp07/usdplan/core/dispatch"
	"github.com/kilianp07/usdplan/core/model"
)

// ErrSteamInfeasible matches every SteamInfeasibleError via errors.Is.
var ErrSteamInfeasible = errors.New("shp demand exceeds hrsg capacity with stg at zero")

// SteamInfeasibleError reports an SHP shortfall that no STG reduction can
// remove.
type SteamInfeasibleError struct {
	DemandMT    float64
	CapacityMT  float64
	ShortfallMT float64
}

func (e *SteamInfeasibleError) Error() string {
	return fmt.Sprintf("SHP demand %.2f MT exceeds max HRSG capacity %.2f MT with STG at zero (shortfall %.2f MT)",
		e.DemandMT, e.CapacityMT, e.ShortfallMT)
}

// Is lets errors.Is(err, ErrSteamInfeasible) match.
func (e *SteamInfeasibleError) Is(target error) bool { return target == ErrSteamInfeasible }

// Classify maps a run error to the error type stored in the result.
func Classify(err error) model.ErrorType {
	var ce *dispatch.CapacityError
	switch {
	case err == nil:
		return model.ErrorNone
	case errors.Is(err, ErrSteamInfeasible):
		return model.ErrorSHPImpossible
	case errors.As(err, &ce) && ce.AfterImport:
		return model.ErrorPowerInsufficient
	case errors.Is(err, dispatch.ErrCapacityInfeasible), errors.Is(err, dispatch.ErrNoAvailableUnits):
		return model.ErrorCapacityInfeasible
	default:
		return model.ErrorConfiguration
	}
}
