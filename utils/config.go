// Package servoutils contains helpers shared by the servo model and its pwm backends.
package servoutils

import (
	"github.com/pkg/errors"
	"go.viam.com/rdk/resource"
)

// ServoFamily is the model family for the servo module.
var ServoFamily = resource.NewModelFamily("armbot", "servo")

const (
	// DefaultPWMFreqHz is the frame rate analog hobby servos expect.
	DefaultPWMFreqHz = 50
	// MaxServoFreqHz is the highest frame rate we will drive a servo at.
	MaxServoFreqHz = 450
)

// ValidateFrequency checks that the given frequency is one a servo can be driven at.
func ValidateFrequency(freqHz uint) error {
	if freqHz == 0 || freqHz > MaxServoFreqHz {
		return errors.Errorf("PWM frequencies should not be above %dHz or 0, have %d", MaxServoFreqHz, freqHz)
	}
	return nil
}
