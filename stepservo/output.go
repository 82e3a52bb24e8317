package stepservo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/board"

	servoutils "armservo/utils"
)

// PWMOutput is a pwm channel a Servo writes its position to. Implementations
// are owned by exactly one servo and need not be safe for concurrent use.
type PWMOutput interface {
	// SetFrequency configures the pwm period.
	SetFrequency(ctx context.Context, freqHz uint) error
	// SetDuty holds the output high for duty out of every resolution ticks of the period.
	SetDuty(ctx context.Context, duty, resolution uint32) error
	// Close stops the output and releases it.
	Close(ctx context.Context) error
}

// BoardOutput drives a servo from a pwm capable GPIO pin of a board.
type BoardOutput struct {
	key     string
	pin     board.GPIOPin
	release func()
	closed  bool
}

var _ PWMOutput = (*BoardOutput)(nil)

// NewBoardOutput claims the named pin of a board as a pwm output.
// It fails with ErrOutputInUse if another servo already owns the pin.
func NewBoardOutput(b board.Board, pinName string) (*BoardOutput, error) {
	key := fmt.Sprintf("%s/%s", b.Name().ShortName(), pinName)
	release, err := servoutils.ClaimOutput(key)
	if err != nil {
		return nil, err
	}

	pin, err := b.GPIOPinByName(pinName)
	if err != nil {
		release()
		return nil, errors.Wrap(err, "couldn't get servo pin")
	}
	return &BoardOutput{key: key, pin: pin, release: release}, nil
}

// SetFrequency sets the pin's pwm frequency.
func (o *BoardOutput) SetFrequency(ctx context.Context, freqHz uint) error {
	if o.closed {
		return ErrClosed
	}
	if err := o.pin.SetPWMFreq(ctx, freqHz, nil); err != nil {
		return errors.Wrapf(err, "error setting servo pin %s frequency", o.key)
	}
	return nil
}

// SetDuty sets the pin's duty cycle.
func (o *BoardOutput) SetDuty(ctx context.Context, duty, resolution uint32) error {
	if o.closed {
		return ErrClosed
	}
	pct, err := servoutils.DutyFraction(duty, resolution)
	if err != nil {
		return err
	}
	if err := o.pin.SetPWM(ctx, pct, nil); err != nil {
		return errors.Wrapf(err, "couldn't set servo pin %s duty cycle", o.key)
	}
	return nil
}

// Close drops the pin's duty cycle to 0, which lets the servo go limp, and
// releases the pin for other servos.
func (o *BoardOutput) Close(ctx context.Context) error {
	if o.closed {
		return nil
	}
	o.closed = true
	defer o.release()
	if err := o.pin.SetPWM(ctx, 0, nil); err != nil {
		return errors.Wrapf(err, "couldn't stop servo pin %s", o.key)
	}
	return nil
}
