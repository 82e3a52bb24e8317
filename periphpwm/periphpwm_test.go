package periphpwm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"armservo/stepservo"
	servoutils "armservo/utils"
)

func TestOutput(t *testing.T) {
	ctx := context.Background()

	t.Run("writes scaled duty and frequency", func(t *testing.T) {
		pin := &gpiotest.Pin{N: "GPIO12", Num: 12}
		out, err := New(pin)
		test.That(t, err, test.ShouldBeNil)
		defer out.Close(ctx)

		test.That(t, out.SetFrequency(ctx, 50), test.ShouldBeNil)
		test.That(t, out.SetDuty(ctx, 1500, 20000), test.ShouldBeNil)
		test.That(t, pin.D, test.ShouldEqual, gpio.Duty(1258291))
		test.That(t, pin.F, test.ShouldEqual, 50*physic.Hertz)

		test.That(t, out.SetDuty(ctx, 4096, 4096), test.ShouldBeNil)
		test.That(t, pin.D, test.ShouldEqual, gpio.DutyMax)
	})

	t.Run("duty above resolution", func(t *testing.T) {
		pin := &gpiotest.Pin{N: "GPIO13", Num: 13}
		out, err := New(pin)
		test.That(t, err, test.ShouldBeNil)
		defer out.Close(ctx)

		err = out.SetDuty(ctx, 20001, 20000)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("pin is exclusively owned until closed", func(t *testing.T) {
		pin := &gpiotest.Pin{N: "GPIO18", Num: 18}
		out, err := New(pin)
		test.That(t, err, test.ShouldBeNil)

		_, err = New(pin)
		test.That(t, errors.Is(err, servoutils.ErrOutputInUse), test.ShouldBeTrue)

		test.That(t, out.Close(ctx), test.ShouldBeNil)
		test.That(t, pin.L, test.ShouldEqual, gpio.Low)
		test.That(t, out.Close(ctx), test.ShouldBeNil)

		err = out.SetDuty(ctx, 1500, 20000)
		test.That(t, errors.Is(err, stepservo.ErrClosed), test.ShouldBeTrue)

		again, err := New(pin)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again.Close(ctx), test.ShouldBeNil)
	})
}

func TestServoOnPeriphPin(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	pin := &gpiotest.Pin{N: "GPIO19", Num: 19}
	out, err := New(pin)
	test.That(t, err, test.ShouldBeNil)

	s, err := stepservo.New(ctx, "gripper", stepservo.Standard180(), out, 90, logger)
	test.That(t, err, test.ShouldBeNil)
	// 1500us of a 20ms period
	test.That(t, pin.D, test.ShouldEqual, gpio.Duty(1258291))

	inRange, err := s.Step(ctx, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inRange, test.ShouldBeTrue)
	test.That(t, s.Angle(), test.ShouldEqual, 100.0)
	test.That(t, s.Duty(), test.ShouldEqual, 1611)
	// 1611 * 2^24 / 20000 = 1351404.75
	test.That(t, pin.D, test.ShouldEqual, gpio.Duty(1351405))

	test.That(t, s.Close(ctx), test.ShouldBeNil)
	test.That(t, pin.L, test.ShouldEqual, gpio.Low)
}
