package stepservo

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	servoutils "armservo/utils"
)

// presetEntry is one servo model in a preset catalog file. Duty bounds are
// given either directly in ticks or as datasheet pulse widths.
type presetEntry struct {
	MinAngle    *float64 `toml:"min_angle"`
	MaxAngle    *float64 `toml:"max_angle"`
	MinDuty     *uint32  `toml:"min_duty"`
	MaxDuty     *uint32  `toml:"max_duty"`
	MinPulseUs  *uint32  `toml:"min_pulse_us"`
	MaxPulseUs  *uint32  `toml:"max_pulse_us"`
	StepAngle   float64  `toml:"step_angle"`
	FrequencyHz uint     `toml:"frequency_hz"`
	Resolution  uint32   `toml:"resolution"`
}

type catalogFile struct {
	Servo map[string]presetEntry `toml:"servo"`
}

// A Catalog holds servo models loaded from a file on top of the built in presets.
type Catalog struct {
	models map[string]ServoConfig
}

// LoadPresetsFile reads a TOML preset catalog from disk.
func LoadPresetsFile(path string) (Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Catalog{}, errors.Wrapf(err, "failed to open preset file %s", path)
	}
	//nolint:errcheck
	defer f.Close()
	return LoadPresets(f)
}

// LoadPresets decodes a TOML preset catalog. Every entry is validated and all
// invalid entries are reported together.
func LoadPresets(r io.Reader) (Catalog, error) {
	var file catalogFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return Catalog{}, errors.Wrap(err, "failed to decode servo presets")
	}

	names := make([]string, 0, len(file.Servo))
	for name := range file.Servo {
		names = append(names, name)
	}
	sort.Strings(names)

	cat := Catalog{models: make(map[string]ServoConfig, len(names))}
	var errs error
	for _, name := range names {
		cfg, err := file.Servo[name].servoConfig()
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "servo preset %q", name))
			continue
		}
		cat.models[name] = cfg
	}
	if errs != nil {
		return Catalog{}, errs
	}
	return cat, nil
}

func (e presetEntry) servoConfig() (ServoConfig, error) {
	minAngle, maxAngle := 0.0, 180.0
	if e.MinAngle != nil {
		minAngle = *e.MinAngle
	}
	if e.MaxAngle != nil {
		maxAngle = *e.MaxAngle
	}
	freq := e.FrequencyHz
	if freq == 0 {
		freq = servoutils.DefaultPWMFreqHz
	}

	hasDuty := e.MinDuty != nil && e.MaxDuty != nil
	hasPulse := e.MinPulseUs != nil && e.MaxPulseUs != nil
	switch {
	case hasDuty && hasPulse:
		return ServoConfig{}, errors.Wrap(ErrInvalidRange, "set either min_duty/max_duty or min_pulse_us/max_pulse_us, not both")
	case hasPulse:
		resolution := e.Resolution
		if resolution == 0 {
			resolution = uint32(usPerSecond / float64(freq))
		}
		return FromPulseWidth(minAngle, maxAngle, *e.MinPulseUs, *e.MaxPulseUs, e.StepAngle, freq, resolution)
	case hasDuty:
		opts := []ConfigOption{WithFrequency(freq)}
		if e.Resolution != 0 {
			opts = append(opts, WithResolution(e.Resolution))
		}
		return NewServoConfig(minAngle, maxAngle, *e.MinDuty, *e.MaxDuty, e.StepAngle, opts...)
	default:
		return ServoConfig{}, errors.Wrap(ErrInvalidRange, "need min_duty/max_duty or min_pulse_us/max_pulse_us")
	}
}

// Lookup finds a servo model by name, preferring the catalog's own entries
// over the built in presets.
func (c Catalog) Lookup(name string) (ServoConfig, bool) {
	if cfg, ok := c.models[name]; ok {
		return cfg, true
	}
	return Preset(name)
}

// Names lists the models in the catalog and the built in presets.
func (c Catalog) Names() []string {
	seen := map[string]struct{}{}
	for _, name := range PresetNames() {
		seen[name] = struct{}{}
	}
	for name := range c.models {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
