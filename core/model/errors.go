package model

import (
	"errors"
	"fmt"
)

// ErrorType classifies a failed or incomplete run in the result record.
type ErrorType string

const (
	ErrorNone               ErrorType = ""
	ErrorConfiguration      ErrorType = "CONFIGURATION_ERROR"
	ErrorCapacityInfeasible ErrorType = "CAPACITY_INFEASIBLE"
	ErrorPowerInsufficient  ErrorType = "POWER_INSUFFICIENT"
	ErrorSHPImpossible      ErrorType = "SHP_IMPOSSIBLE"
	ErrorNotConverged       ErrorType = "NOT_CONVERGED"
	ErrorExcessSteam        ErrorType = "EXCESS_STEAM_UNABSORBED"
)

// ErrConfiguration matches every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports invalid or missing planning input.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
