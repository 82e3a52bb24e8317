package stepservo

import (
	"github.com/pkg/errors"
	"go.viam.com/rdk/resource"
)

// Config is the resource config for a stepping servo.
type Config struct {
	Board string `json:"board"`
	Pin   string `json:"pin"`

	Preset      string `json:"preset,omitempty"`       // built in or catalog model. Defaults to standard180
	PresetsFile string `json:"presets_file,omitempty"` // optional TOML catalog of extra models

	// overrides of the preset's calibration
	MinAngle   *float64 `json:"min_angle_deg,omitempty"`
	MaxAngle   *float64 `json:"max_angle_deg,omitempty"`
	MinDuty    *uint32  `json:"min_duty,omitempty"`
	MaxDuty    *uint32  `json:"max_duty,omitempty"`
	StepAngle  *float64 `json:"step_angle_deg,omitempty"`
	Frequency  *uint    `json:"frequency_hz,omitempty"`
	Resolution *uint32  `json:"pwm_resolution,omitempty"`

	StartPos         *float64 `json:"starting_position_deg,omitempty"` // defaults to the middle of the travel range
	InitialDirection string   `json:"initial_direction,omitempty"`     // forward or backward. Defaults to forward
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) ([]string, []string, error) {
	if conf.Board == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "board")
	}
	if conf.Pin == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "pin")
	}
	sc, err := conf.servoConfig()
	if err != nil {
		return nil, nil, resource.NewConfigValidationError(path, err)
	}
	if _, err := conf.startAngle(sc); err != nil {
		return nil, nil, resource.NewConfigValidationError(path, err)
	}
	if _, err := ParseDirection(conf.InitialDirection); err != nil {
		return nil, nil, resource.NewConfigValidationError(path, err)
	}
	return []string{conf.Board}, nil, nil
}

// servoConfig resolves the preset and applies the overrides on top of it.
func (conf *Config) servoConfig() (ServoConfig, error) {
	name := conf.Preset
	if name == "" {
		name = DefaultPreset
	}

	var (
		sc ServoConfig
		ok bool
	)
	if conf.PresetsFile != "" {
		cat, err := LoadPresetsFile(conf.PresetsFile)
		if err != nil {
			return ServoConfig{}, err
		}
		sc, ok = cat.Lookup(name)
	} else {
		sc, ok = Preset(name)
	}
	if !ok {
		return ServoConfig{}, errors.Errorf("unknown servo preset %q", name)
	}

	if conf.MinAngle != nil {
		sc.MinAngle = *conf.MinAngle
	}
	if conf.MaxAngle != nil {
		sc.MaxAngle = *conf.MaxAngle
	}
	if conf.StepAngle != nil {
		sc.StepAngle = *conf.StepAngle
	}

	freq, res := sc.FrequencyHz, sc.Resolution
	if conf.Frequency != nil {
		freq = *conf.Frequency
	}
	if conf.Resolution != nil {
		res = *conf.Resolution
	}
	sc = sc.retimed(freq, res)

	// explicit duties are already in ticks of the new period
	if conf.MinDuty != nil {
		sc.MinDuty = *conf.MinDuty
	}
	if conf.MaxDuty != nil {
		sc.MaxDuty = *conf.MaxDuty
	}
	if err := sc.Validate(); err != nil {
		return ServoConfig{}, err
	}
	return sc, nil
}

// startAngle returns the configured starting position, or the middle of the
// travel range if none was set.
func (conf *Config) startAngle(sc ServoConfig) (float64, error) {
	if conf.StartPos == nil {
		return sc.Midpoint(), nil
	}
	if !sc.Contains(*conf.StartPos) {
		return 0, errors.Errorf("starting_position_deg should be between %.1f and %.1f", sc.MinAngle, sc.MaxAngle)
	}
	return *conf.StartPos, nil
}
