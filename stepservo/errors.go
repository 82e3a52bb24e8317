package stepservo

import (
	"fmt"

	"github.com/pkg/errors"

	servoutils "armservo/utils"
)

var (
	// ErrInvalidRange is returned when a servo config breaks its travel or duty invariants.
	ErrInvalidRange = errors.New("invalid servo range")
	// ErrOutputInUse is returned when a pwm output is already owned by another servo.
	ErrOutputInUse = servoutils.ErrOutputInUse
	// ErrClosed is returned when a closed servo or output is written to.
	ErrClosed = errors.New("servo is closed")
)

// HardwareOp names the hardware step that failed.
type HardwareOp string

const (
	// OpInit is the pwm peripheral setup done while constructing a servo.
	OpInit HardwareOp = "init"
	// OpWrite is a duty cycle write after construction.
	OpWrite HardwareOp = "write"
)

// HardwareError reports a pwm peripheral failure for a named servo.
type HardwareError struct {
	Op   HardwareOp
	Name string
	Err  error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s servo pwm %s failed: %v", e.Name, e.Op, e.Err)
}

// Unwrap returns the underlying peripheral error.
func (e *HardwareError) Unwrap() error {
	return e.Err
}

func newHardwareError(op HardwareOp, name string, err error) error {
	return &HardwareError{Op: op, Name: name, Err: err}
}

// IsInitError returns if the given error is a pwm setup failure.
func IsInitError(err error) bool {
	var hwErr *HardwareError
	return errors.As(err, &hwErr) && hwErr.Op == OpInit
}

// IsWriteError returns if the given error is a duty cycle write failure.
func IsWriteError(err error) bool {
	var hwErr *HardwareError
	return errors.As(err, &hwErr) && hwErr.Op == OpWrite
}
