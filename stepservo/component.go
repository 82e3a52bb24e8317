package stepservo

/*
	This file registers the stepping servo as a servo component. The servo
	runs on a pwm capable GPIO pin of any board the robot has configured. The
	runtime may call a component from several goroutines, so every call to the
	underlying Servo is serialized here.
*/

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/board"
	"go.viam.com/rdk/components/servo"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/operation"
	"go.viam.com/rdk/resource"

	servoutils "armservo/utils"
)

// Model is the model of the stepping servo.
var Model = servoutils.ServoFamily.WithModel("step-servo")

// DoCommand keys.
const (
	cmdForward   = "forward"
	cmdBackward  = "backward"
	cmdStep      = "step"
	cmdIsForward = "is_forward"
	cmdAngle     = "angle"
)

func init() {
	resource.RegisterComponent(
		servo.API,
		Model,
		resource.Registration[servo.Servo, *Config]{
			Constructor: newStepServo,
		},
	)
}

func newStepServo(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (servo.Servo, error) {
	newConf, err := parseConfig(conf)
	if err != nil {
		return nil, err
	}

	b, err := board.FromDependencies(deps, newConf.Board)
	if err != nil {
		return nil, errors.Wrap(err, "board doesn't exist")
	}

	return initializeServo(ctx, conf, logger, b, newConf)
}

// parseConfig parses the provided configuration into a Config.
func parseConfig(conf resource.Config) (*Config, error) {
	newConf, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	return newConf, nil
}

// initializeServo binds the configured board pin and moves the servo to its start position.
func initializeServo(
	ctx context.Context,
	conf resource.Config,
	logger logging.Logger,
	b board.Board,
	newConf *Config,
) (*stepServo, error) {
	sc, err := newConf.servoConfig()
	if err != nil {
		return nil, err
	}
	start, err := newConf.startAngle(sc)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirection(newConf.InitialDirection)
	if err != nil {
		return nil, err
	}

	out, err := NewBoardOutput(b, newConf.Pin)
	if err != nil {
		return nil, newHardwareError(OpInit, conf.Name, err)
	}
	core, err := New(ctx, conf.Name, sc, out, start, logger)
	if err != nil {
		return nil, err
	}
	core.SetDirection(dir)

	return &stepServo{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
		servo:  core,
		opMgr:  operation.NewSingleOperationManager(),
	}, nil
}

// stepServo implements a servo.Servo on top of a stepping Servo.
type stepServo struct {
	resource.Named
	resource.AlwaysRebuild
	logger logging.Logger

	mu    sync.Mutex
	servo *Servo
	opMgr *operation.SingleOperationManager
}

var _ servo.Servo = (*stepServo)(nil)

// Move moves the servo to the given angle, clamped to its travel range.
func (s *stepServo) Move(ctx context.Context, angle uint32, extra map[string]interface{}) error {
	ctx, done := s.opMgr.New(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()
	inRange, err := s.servo.MoveTo(ctx, float64(angle))
	if err != nil {
		return errors.Wrap(err, "couldn't move the servo")
	}
	if !inRange {
		s.logger.Debugf("requested angle %d is outside the travel range, servo held at %.2f", angle, s.servo.Angle())
	}
	return nil
}

// Position returns the current angle of the servo rounded to whole degrees.
// Angles below 0 are reported as 0.
func (s *stepServo) Position(ctx context.Context, extra map[string]interface{}) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(math.Max(0, math.Round(s.servo.Angle()))), nil
}

// Stop stops the servo. Moves finish before they return, so this only
// cancels a running operation and the servo keeps holding its position.
func (s *stepServo) Stop(ctx context.Context, extra map[string]interface{}) error {
	_, done := s.opMgr.New(ctx)
	defer done()
	return nil
}

// IsMoving returns whether a move or step is in progress.
func (s *stepServo) IsMoving(ctx context.Context) (bool, error) {
	return s.opMgr.OpRunning(), nil
}

// DoCommand exposes the stepping api. Direction keys are applied before a step
// so {"backward": true, "step": 3} turns around and moves in one call.
func (s *stepServo) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handled := false
	resp := map[string]interface{}{}

	if v, ok := cmd[cmdForward]; ok {
		if on, _ := v.(bool); on {
			s.servo.Forward()
		}
		handled = true
	}
	if v, ok := cmd[cmdBackward]; ok {
		if on, _ := v.(bool); on {
			s.servo.Backward()
		}
		handled = true
	}
	if v, ok := cmd[cmdStep]; ok {
		n, err := stepCount(v)
		if err != nil {
			return nil, err
		}
		ctx, done := s.opMgr.New(ctx)
		inRange, err := s.servo.Step(ctx, n)
		done()
		if err != nil {
			return nil, err
		}
		resp["in_range"] = inRange
		handled = true
	}
	if _, ok := cmd[cmdIsForward]; ok {
		handled = true
	}
	if _, ok := cmd[cmdAngle]; ok {
		handled = true
	}
	if !handled {
		return nil, resource.ErrDoUnimplemented
	}

	resp[cmdIsForward] = s.servo.IsForward()
	resp[cmdAngle] = s.servo.Angle()
	return resp, nil
}

// stepCount reads a step count out of a decoded command value.
func stepCount(v interface{}) (uint32, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case uint32:
		return n, nil
	default:
		return 0, errors.Errorf("step expects a number, got %T", v)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, errors.Errorf("step expects a non-negative whole number, got %v", v)
	}
	return uint32(f), nil
}

// Close releases the servo's pin.
func (s *stepServo) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servo.Close(ctx)
}
