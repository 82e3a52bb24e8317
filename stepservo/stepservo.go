// Package stepservo implements a stepping servo controller
package stepservo

/*
	A Servo drives one hobby servo through a pwm output it exclusively owns.
	Motion works like a stepper motor: pick a heading with Forward or Backward,
	then call Step to move a number of fixed angular increments. Steps that
	would leave the travel range stop at the bound and report false.

	A Servo does no locking. Callers must serialize access to it.
*/

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	servoutils "armservo/utils"
)

// Direction is the heading the next step moves the servo in.
type Direction int

const (
	// Forward steps increase the angle.
	Forward Direction = iota
	// Backward steps decrease the angle.
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// ParseDirection parses the name of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	default:
		return Forward, errors.Errorf("invalid direction %q, supported directions are forward and backward", s)
	}
}

// boundEpsilon is how close, in degrees, a step target must come to a bound to land on it.
const boundEpsilon = 1e-9

// Servo is a stateful controller for a single servo.
type Servo struct {
	name   string
	config ServoConfig
	out    PWMOutput
	logger logging.Logger

	angle     float64
	duty      uint32
	direction Direction
	closed    bool
}

// New binds a servo to its pwm output and moves it to startAngle. New takes
// ownership of out: it is closed if construction fails, and by Close otherwise.
func New(
	ctx context.Context,
	name string,
	cfg ServoConfig,
	out PWMOutput,
	startAngle float64,
	logger logging.Logger,
) (*Servo, error) {
	s, err := newServo(ctx, name, cfg, out, startAngle, logger)
	if err != nil {
		if closeErr := out.Close(ctx); closeErr != nil {
			logger.Warnf("failed to release %s servo pwm output: %v", name, closeErr)
		}
		return nil, err
	}
	return s, nil
}

func newServo(
	ctx context.Context,
	name string,
	cfg ServoConfig,
	out PWMOutput,
	startAngle float64,
	logger logging.Logger,
) (*Servo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(startAngle) || !cfg.Contains(startAngle) {
		return nil, errors.Wrapf(ErrInvalidRange, "starting angle %.2f is outside [%.2f, %.2f]",
			startAngle, cfg.MinAngle, cfg.MaxAngle)
	}
	if err := servoutils.ValidateFrequency(cfg.FrequencyHz); err != nil {
		return nil, newHardwareError(OpInit, name, err)
	}
	if err := out.SetFrequency(ctx, cfg.FrequencyHz); err != nil {
		return nil, newHardwareError(OpInit, name, err)
	}

	duty := cfg.DutyForAngle(startAngle)
	if err := out.SetDuty(ctx, duty, cfg.Resolution); err != nil {
		return nil, newHardwareError(OpInit, name, err)
	}

	logger.Infof("%s servo: start=%.2f duty=%d duty_range=[%d, %d]", name, startAngle, duty, cfg.MinDuty, cfg.MaxDuty)

	return &Servo{
		name:      name,
		config:    cfg,
		out:       out,
		logger:    logger,
		angle:     startAngle,
		duty:      duty,
		direction: Forward,
	}, nil
}

// Name returns the diagnostic label of the servo.
func (s *Servo) Name() string {
	return s.name
}

// Config returns the calibration the servo was built with.
func (s *Servo) Config() ServoConfig {
	return s.config
}

// Forward sets the servo to step toward MaxAngle.
func (s *Servo) Forward() {
	s.direction = Forward
}

// Backward sets the servo to step toward MinAngle.
func (s *Servo) Backward() {
	s.direction = Backward
}

// SetDirection sets the heading of the next step.
func (s *Servo) SetDirection(d Direction) {
	if d == Backward {
		s.Backward()
		return
	}
	s.Forward()
}

// IsForward returns true if the servo is set to step toward MaxAngle.
func (s *Servo) IsForward() bool {
	return s.direction == Forward
}

// Direction returns the current heading.
func (s *Servo) Direction() Direction {
	return s.direction
}

// Angle returns the last angle written to the servo, in degrees.
func (s *Servo) Angle() float64 {
	return s.angle
}

// Duty returns the last duty written to the servo, in ticks.
func (s *Servo) Duty() uint32 {
	return s.duty
}

// Step moves the servo n steps in the current direction. It returns false when
// the move was cut short at the end of the travel range; the servo then rests
// exactly on the bound. Only a failed pwm write is an error.
func (s *Servo) Step(ctx context.Context, n uint32) (bool, error) {
	delta := float64(n) * s.config.StepAngle
	if s.direction == Backward {
		delta = -delta
	}
	target := s.angle + delta

	// repeated fractional steps drift, so a target this close to a bound is the bound
	inRange := true
	switch {
	case target >= s.config.MaxAngle-boundEpsilon:
		inRange = target <= s.config.MaxAngle+boundEpsilon
		target = s.config.MaxAngle
	case target <= s.config.MinAngle+boundEpsilon:
		inRange = target >= s.config.MinAngle-boundEpsilon
		target = s.config.MinAngle
	}

	if err := s.write(ctx, target); err != nil {
		return false, err
	}
	if inRange {
		s.logger.Debugf("%s servo step(%d) to angle %.2f duty %d", s.name, n, s.angle, s.duty)
	} else {
		s.logger.Debugf("%s servo step(%d) stopped at bound %.2f duty %d", s.name, n, s.angle, s.duty)
	}
	return inRange, nil
}

// MoveTo moves the servo straight to the given angle, clamped to the travel
// range. It returns false if the angle had to be clamped.
func (s *Servo) MoveTo(ctx context.Context, angle float64) (bool, error) {
	if math.IsNaN(angle) {
		return false, errors.Wrap(ErrInvalidRange, "cannot move to NaN")
	}
	target := math.Max(s.config.MinAngle, math.Min(s.config.MaxAngle, angle))
	if err := s.write(ctx, target); err != nil {
		return false, err
	}
	s.logger.Debugf("%s servo moved to angle %.2f duty %d", s.name, s.angle, s.duty)
	return target == angle, nil
}

// write sends the duty for angle to the output and only records the new
// position once the write succeeded.
func (s *Servo) write(ctx context.Context, angle float64) error {
	if s.closed {
		return newHardwareError(OpWrite, s.name, ErrClosed)
	}
	duty := s.config.DutyForAngle(angle)
	if err := s.out.SetDuty(ctx, duty, s.config.Resolution); err != nil {
		return newHardwareError(OpWrite, s.name, err)
	}
	s.angle = angle
	s.duty = duty
	return nil
}

// Close releases the pwm output. Closing twice is a no-op.
func (s *Servo) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.out.Close(ctx); err != nil {
		return errors.Wrapf(err, "failed to release %s servo pwm output", s.name)
	}
	return nil
}
