// Package periphpwm drives servos from pwm pins exposed by the periph.io host drivers.
package periphpwm

/*
	Used when a servo is wired straight to a single board computer rather than
	through a board component, e.g. by the bench tool. Hardware pwm support
	depends on the host: on a raspberry pi the pin must be muxed to a pwm
	channel (GPIO12, GPIO13, GPIO18 or GPIO19).
*/

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"armservo/stepservo"
	servoutils "armservo/utils"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Output is a stepservo.PWMOutput on a periph.io gpio pin.
type Output struct {
	pin     gpio.PinIO
	freq    physic.Frequency
	release func()
	closed  bool
}

var _ stepservo.PWMOutput = (*Output)(nil)

// Open loads the host drivers and claims the named pin.
func Open(name string) (*Output, error) {
	if err := hostInit(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph host drivers")
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no gpio pin named %s", name)
	}
	return New(pin)
}

// New claims an already resolved pin.
func New(pin gpio.PinIO) (*Output, error) {
	release, err := servoutils.ClaimOutput("periph/" + pin.Name())
	if err != nil {
		return nil, err
	}
	return &Output{
		pin:     pin,
		freq:    servoutils.DefaultPWMFreqHz * physic.Hertz,
		release: release,
	}, nil
}

// SetFrequency records the pwm frequency. periph sets frequency and duty
// together, so it takes effect on the next SetDuty.
func (o *Output) SetFrequency(ctx context.Context, freqHz uint) error {
	if o.closed {
		return stepservo.ErrClosed
	}
	o.freq = physic.Frequency(freqHz) * physic.Hertz
	return nil
}

// SetDuty rescales the duty to periph's 24 bit duty range and writes it.
func (o *Output) SetDuty(ctx context.Context, duty, resolution uint32) error {
	if o.closed {
		return stepservo.ErrClosed
	}
	d, err := servoutils.ScaleDuty(duty, resolution, uint32(gpio.DutyMax))
	if err != nil {
		return err
	}
	if err := o.pin.PWM(gpio.Duty(d), o.freq); err != nil {
		return errors.Wrapf(err, "pwm write on %s failed", o.pin.Name())
	}
	return nil
}

// Close halts the pwm, pulls the pin low and releases it.
func (o *Output) Close(ctx context.Context) error {
	if o.closed {
		return nil
	}
	o.closed = true
	defer o.release()
	return multierr.Combine(
		o.pin.Halt(),
		o.pin.Out(gpio.Low),
	)
}
