package servoutils

import (
	"github.com/pkg/errors"
)

// DutyFraction converts a duty expressed in ticks of the given resolution
// into the fraction of the period the output is held high.
func DutyFraction(duty, resolution uint32) (float64, error) {
	if resolution == 0 {
		return 0, errors.New("pwm resolution cannot be 0")
	}
	if duty > resolution {
		return 0, errors.Errorf("duty %d is above the pwm resolution %d", duty, resolution)
	}
	return float64(duty) / float64(resolution), nil
}

// ScaleDuty rescales a duty from one resolution to another, rounding to the nearest tick.
func ScaleDuty(duty, from, to uint32) (uint32, error) {
	if from == 0 || to == 0 {
		return 0, errors.New("pwm resolution cannot be 0")
	}
	if duty > from {
		return 0, errors.Errorf("duty %d is above the pwm resolution %d", duty, from)
	}
	// uint64 so duty*to never wraps
	num := uint64(duty) * uint64(to)
	return uint32((num + uint64(from)/2) / uint64(from)), nil
}
