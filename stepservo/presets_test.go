package stepservo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

const presetCatalog = `
[servo.hs422]
min_pulse_us = 600
max_pulse_us = 2400
step_angle = 3.0
resolution = 4096

[servo.wrist]
min_angle = 20.0
max_angle = 160.0
min_duty = 2300
max_duty = 700
step_angle = 1.0

[servo.sg90]
min_duty = 500
max_duty = 2400
step_angle = 10.0
`

func TestLoadPresets(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		cat, err := LoadPresets(strings.NewReader(presetCatalog))
		test.That(t, err, test.ShouldBeNil)

		hs, ok := cat.Lookup("hs422")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, hs.MinAngle, test.ShouldEqual, 0.0)
		test.That(t, hs.MaxAngle, test.ShouldEqual, 180.0)
		// 600us and 2400us of a 20ms period at 12 bits
		test.That(t, hs.MinDuty, test.ShouldEqual, 123)
		test.That(t, hs.MaxDuty, test.ShouldEqual, 492)
		test.That(t, hs.FrequencyHz, test.ShouldEqual, 50)

		wrist, ok := cat.Lookup("wrist")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, wrist.Resolution, test.ShouldEqual, 20000)
		test.That(t, wrist.DutyForAngle(20), test.ShouldEqual, 2300)
		test.That(t, wrist.DutyForAngle(160), test.ShouldEqual, 700)

		// catalog entries win over built in presets
		sg, ok := cat.Lookup("sg90")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, sg.StepAngle, test.ShouldEqual, 10.0)

		// built in presets are still reachable
		mg, ok := cat.Lookup("mg996r")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, mg, test.ShouldResemble, MG996R())

		_, ok = cat.Lookup("missing")
		test.That(t, ok, test.ShouldBeFalse)

		test.That(t, cat.Names(), test.ShouldResemble,
			[]string{"hs422", "mg996r", "sg90", "sg90s", "standard180", "wrist"})
	})

	t.Run("every bad entry is reported", func(t *testing.T) {
		bad := `
[servo.backwards]
min_angle = 180.0
max_angle = 0.0
min_duty = 500
max_duty = 2500
step_angle = 5.0

[servo.nostep]
min_duty = 500
max_duty = 2500

[servo.both]
min_duty = 500
max_duty = 2500
min_pulse_us = 500
max_pulse_us = 2500
step_angle = 5.0

[servo.nothing]
step_angle = 5.0
`
		_, err := LoadPresets(strings.NewReader(bad))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidRange), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, `servo preset "backwards"`)
		test.That(t, err.Error(), test.ShouldContainSubstring, `servo preset "nostep"`)
		test.That(t, err.Error(), test.ShouldContainSubstring, `servo preset "both"`)
		test.That(t, err.Error(), test.ShouldContainSubstring, `servo preset "nothing"`)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := LoadPresets(strings.NewReader("[servo.x]\nmin_duty = 1\nmax_duty = 2\nstep_angle = 1.0\nspeed = 3\n"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode servo presets")
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "servos.toml")
		test.That(t, os.WriteFile(path, []byte(presetCatalog), 0o600), test.ShouldBeNil)

		cat, err := LoadPresetsFile(path)
		test.That(t, err, test.ShouldBeNil)
		_, ok := cat.Lookup("wrist")
		test.That(t, ok, test.ShouldBeTrue)

		_, err = LoadPresetsFile(filepath.Join(t.TempDir(), "missing.toml"))
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to open preset file")
	})
}
