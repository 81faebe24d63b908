package api

import (
	"errors"
	"math"
)

// Validator is implemented by payloads that can check themselves.
type Validator interface {
	Validate() error
}

func (p ObjectivePayload) Validate() error {
	if p.ObjectiveID <= 0 {
		return errors.New("objectiveId is required")
	}
	return nil
}

func (p PositionPayload) Validate() error {
	for _, v := range []float64{p.X, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("position must be finite")
		}
	}
	return nil
}
