package stepservo

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	servoutils "armservo/utils"
)

const usPerSecond = 1e6

// ServoConfig is the calibration of one servo model: its travel range and the
// duty values that drive it to either end. It is a plain value and is never
// mutated after construction, so one config can be shared by several servos.
type ServoConfig struct {
	MinAngle float64 // degrees
	MaxAngle float64 // degrees

	MinDuty uint32 // duty ticks at MinAngle
	MaxDuty uint32 // duty ticks at MaxAngle

	StepAngle float64 // degrees moved by one step

	FrequencyHz uint   // frame rate the servo expects
	Resolution  uint32 // duty ticks per pwm period
}

// ConfigOption overrides a default of NewServoConfig.
type ConfigOption func(*ServoConfig)

// WithFrequency sets the pwm frequency. Defaults to 50Hz.
func WithFrequency(freqHz uint) ConfigOption {
	return func(c *ServoConfig) {
		c.FrequencyHz = freqHz
	}
}

// WithResolution sets the number of duty ticks in one pwm period. Defaults to
// one tick per microsecond of the period.
func WithResolution(ticks uint32) ConfigOption {
	return func(c *ServoConfig) {
		c.Resolution = ticks
	}
}

// NewServoConfig builds a ServoConfig and checks its invariants.
func NewServoConfig(
	minAngle, maxAngle float64,
	minDuty, maxDuty uint32,
	stepAngle float64,
	opts ...ConfigOption,
) (ServoConfig, error) {
	c := ServoConfig{
		MinAngle:    minAngle,
		MaxAngle:    maxAngle,
		MinDuty:     minDuty,
		MaxDuty:     maxDuty,
		StepAngle:   stepAngle,
		FrequencyHz: servoutils.DefaultPWMFreqHz,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Resolution == 0 && c.FrequencyHz > 0 {
		c.Resolution = uint32(usPerSecond / float64(c.FrequencyHz))
	}
	if err := c.Validate(); err != nil {
		return ServoConfig{}, err
	}
	return c, nil
}

// FromPulseWidth builds a ServoConfig from the pulse width range printed on a
// servo's datasheet, converting each pulse to ticks of the given resolution.
func FromPulseWidth(
	minAngle, maxAngle float64,
	minPulseUs, maxPulseUs uint32,
	stepAngle float64,
	freqHz uint,
	resolution uint32,
) (ServoConfig, error) {
	if freqHz == 0 || resolution == 0 {
		return ServoConfig{}, errors.Wrap(ErrInvalidRange, "frequency and resolution are required to convert pulse widths")
	}
	return NewServoConfig(
		minAngle, maxAngle,
		pulseToDuty(minPulseUs, freqHz, resolution),
		pulseToDuty(maxPulseUs, freqHz, resolution),
		stepAngle,
		WithFrequency(freqHz),
		WithResolution(resolution),
	)
}

// pulseToDuty changes a pulse width in microseconds into
// the duty ticks of a period at the given frequency
func pulseToDuty(pulseUs uint32, freqHz uint, resolution uint32) uint32 {
	return uint32(math.Round(float64(pulseUs) * float64(freqHz) * float64(resolution) / usPerSecond))
}

// Validate ensures the config's travel range, duty range and step are usable.
func (c ServoConfig) Validate() error {
	for _, v := range []float64{c.MinAngle, c.MaxAngle, c.StepAngle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrap(ErrInvalidRange, "angles must be finite numbers")
		}
	}
	if c.MinAngle >= c.MaxAngle {
		return errors.Wrapf(ErrInvalidRange, "min angle %.2f must be below max angle %.2f", c.MinAngle, c.MaxAngle)
	}
	if c.StepAngle <= 0 {
		return errors.Wrapf(ErrInvalidRange, "step angle must be positive, have %.2f", c.StepAngle)
	}
	if c.MinDuty == c.MaxDuty {
		return errors.Wrapf(ErrInvalidRange, "min duty and max duty are both %d", c.MinDuty)
	}
	if c.FrequencyHz == 0 {
		return errors.Wrap(ErrInvalidRange, "pwm frequency cannot be 0")
	}
	if c.Resolution == 0 {
		return errors.Wrap(ErrInvalidRange, "pwm resolution cannot be 0")
	}
	if c.MinDuty > c.Resolution || c.MaxDuty > c.Resolution {
		return errors.Wrapf(ErrInvalidRange, "duty range [%d, %d] does not fit a resolution of %d",
			c.MinDuty, c.MaxDuty, c.Resolution)
	}
	return nil
}

// Midpoint returns the center of the travel range.
func (c ServoConfig) Midpoint() float64 {
	return c.MinAngle + (c.MaxAngle-c.MinAngle)/2
}

// Contains returns whether the angle lies within the travel range.
func (c ServoConfig) Contains(angle float64) bool {
	return angle >= c.MinAngle && angle <= c.MaxAngle
}

// Standard180 is a generic 0-180 degree analog servo driven with 500-2500us
// pulses, with duty expressed in microseconds.
func Standard180() ServoConfig {
	return ServoConfig{
		MinAngle:    0,
		MaxAngle:    180,
		MinDuty:     500,
		MaxDuty:     2500,
		StepAngle:   5,
		FrequencyHz: 50,
		Resolution:  20000,
	}
}

// SG90 is the 9g micro servo found in most hobby arm kits: 500-2600us pulses on
// a 12 bit timer.
func SG90() ServoConfig {
	return ServoConfig{
		MinAngle:    0,
		MaxAngle:    180,
		MinDuty:     pulseToDuty(500, 50, 4096),
		MaxDuty:     pulseToDuty(2600, 50, 4096),
		StepAngle:   2,
		FrequencyHz: 50,
		Resolution:  4096,
	}
}

// MG996R is the metal gear standard servo used for shoulders and elbows.
func MG996R() ServoConfig {
	return ServoConfig{
		MinAngle:    0,
		MaxAngle:    180,
		MinDuty:     500,
		MaxDuty:     2500,
		StepAngle:   5,
		FrequencyHz: 50,
		Resolution:  20000,
	}
}

var presets = map[string]func() ServoConfig{
	"standard180": Standard180,
	"sg90":        SG90,
	"sg90s":       SG90,
	"mg996r":      MG996R,
}

// DefaultPreset is used when a servo is configured without a preset.
const DefaultPreset = "standard180"

// Preset looks up a built in servo model by name.
func Preset(name string) (ServoConfig, bool) {
	fn, ok := presets[name]
	if !ok {
		return ServoConfig{}, false
	}
	return fn(), true
}

// PresetNames lists the built in servo models.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
