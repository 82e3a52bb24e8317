package stepservo

/*
	Conversions between servo angles and pwm duty ticks.
*/

import "math"

// DutyForAngle changes an angle in degrees into the duty ticks that hold the
// servo there. Angles outside the travel range map to the nearest bound, and
// the bounds map to MinDuty and MaxDuty exactly.
func (c ServoConfig) DutyForAngle(angle float64) uint32 {
	switch {
	case math.IsNaN(angle), angle <= c.MinAngle:
		return c.MinDuty
	case angle >= c.MaxAngle:
		return c.MaxDuty
	}
	fraction := (angle - c.MinAngle) / (c.MaxAngle - c.MinAngle)
	duty := float64(c.MinDuty) + fraction*(float64(c.MaxDuty)-float64(c.MinDuty))
	return uint32(math.Round(duty))
}

// AngleForDuty changes duty ticks into the angle in degrees they
// correspond to, clamped to the travel range.
func (c ServoConfig) AngleForDuty(duty uint32) float64 {
	fraction := (float64(duty) - float64(c.MinDuty)) / (float64(c.MaxDuty) - float64(c.MinDuty))
	fraction = math.Max(0, math.Min(1, fraction))
	return c.MinAngle + fraction*(c.MaxAngle-c.MinAngle)
}

// DegreesPerTick is the angular size of one duty tick, the best precision a
// position can be held at.
func (c ServoConfig) DegreesPerTick() float64 {
	ticks := math.Abs(float64(c.MaxDuty) - float64(c.MinDuty))
	return (c.MaxAngle - c.MinAngle) / ticks
}

// retimed moves the config to another pwm frequency and resolution, rescaling
// the duty bounds so the servo still sees the same pulse widths. A zero
// frequency or resolution is left for Validate to reject.
func (c ServoConfig) retimed(freqHz uint, resolution uint32) ServoConfig {
	if freqHz == 0 || resolution == 0 || c.FrequencyHz == 0 || c.Resolution == 0 {
		c.FrequencyHz = freqHz
		c.Resolution = resolution
		return c
	}
	scale := float64(freqHz) / float64(c.FrequencyHz) * float64(resolution) / float64(c.Resolution)
	rescale := func(duty uint32) uint32 {
		return uint32(math.Min(math.Round(float64(duty)*scale), math.MaxUint32))
	}
	c.MinDuty = rescale(c.MinDuty)
	c.MaxDuty = rescale(c.MaxDuty)
	c.FrequencyHz = freqHz
	c.Resolution = resolution
	return c
}
