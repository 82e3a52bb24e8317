package stepservo

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/rdk/resource"
	"go.viam.com/test"
)

func TestConfigValidate(t *testing.T) {
	t.Run("required fields", func(t *testing.T) {
		conf := &Config{}
		_, _, err := conf.Validate("path")
		test.That(t, resource.GetFieldFromFieldRequiredError(err), test.ShouldEqual, "board")

		conf.Board = "board1"
		_, _, err = conf.Validate("path")
		test.That(t, resource.GetFieldFromFieldRequiredError(err), test.ShouldEqual, "pin")

		conf.Pin = "12"
		deps, optDeps, err := conf.Validate("path")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, deps, test.ShouldResemble, []string{"board1"})
		test.That(t, optDeps, test.ShouldBeNil)
	})

	ptrF := func(v float64) *float64 { return &v }
	ptrU := func(v uint32) *uint32 { return &v }
	ptrHz := func(v uint) *uint { return &v }

	testCases := []struct {
		name   string
		conf   Config
		errMsg string
	}{
		{name: "unknown_preset", conf: Config{Preset: "hs422"}, errMsg: `unknown servo preset "hs422"`},
		{name: "inverted_range", conf: Config{MinAngle: ptrF(170), MaxAngle: ptrF(10)}, errMsg: "must be below max angle"},
		{name: "zero_step", conf: Config{StepAngle: ptrF(0)}, errMsg: "step angle must be positive"},
		{name: "flat_duty", conf: Config{MinDuty: ptrU(2500)}, errMsg: "both 2500"},
		{name: "duty_too_big", conf: Config{Resolution: ptrU(2000), MaxDuty: ptrU(2500)}, errMsg: "does not fit a resolution"},
		{name: "pulse_longer_than_period", conf: Config{Frequency: ptrHz(450)}, errMsg: "does not fit a resolution"},
		{name: "zero_frequency", conf: Config{Frequency: ptrHz(0)}, errMsg: "frequency cannot be 0"},
		{name: "start_outside", conf: Config{StartPos: ptrF(190)}, errMsg: "starting_position_deg should be between 0.0 and 180.0"},
		{
			name:   "start_outside_overridden_range",
			conf:   Config{MinAngle: ptrF(30), MaxAngle: ptrF(150), StartPos: ptrF(10)},
			errMsg: "starting_position_deg should be between 30.0 and 150.0",
		},
		{name: "bad_direction", conf: Config{InitialDirection: "up"}, errMsg: "invalid direction"},
		{name: "missing_presets_file", conf: Config{PresetsFile: "/nonexistent/servos.toml"}, errMsg: "failed to open preset file"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := tc.conf
			conf.Board = "board1"
			conf.Pin = "12"
			_, _, err := conf.Validate("path")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
		})
	}
}

func TestConfigServoConfig(t *testing.T) {
	t.Run("defaults to standard180 centered", func(t *testing.T) {
		conf := &Config{Board: "board1", Pin: "12"}
		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc, test.ShouldResemble, Standard180())

		start, err := conf.startAngle(sc)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, start, test.ShouldEqual, 90.0)
	})

	t.Run("overrides apply on top of the preset", func(t *testing.T) {
		minAngle, maxAngle, step := 30.0, 150.0, 1.0
		start := 45.0
		conf := &Config{
			Board:     "board1",
			Pin:       "12",
			Preset:    "sg90",
			MinAngle:  &minAngle,
			MaxAngle:  &maxAngle,
			StepAngle: &step,
			StartPos:  &start,
		}
		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc.MinAngle, test.ShouldEqual, 30.0)
		test.That(t, sc.MaxAngle, test.ShouldEqual, 150.0)
		test.That(t, sc.StepAngle, test.ShouldEqual, 1.0)
		test.That(t, sc.MinDuty, test.ShouldEqual, SG90().MinDuty)
		test.That(t, sc.Resolution, test.ShouldEqual, 4096)

		got, err := conf.startAngle(sc)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, 45.0)
	})

	t.Run("frequency override keeps the pulse widths", func(t *testing.T) {
		freq := uint(100)
		conf := &Config{Board: "board1", Pin: "12", Frequency: &freq}
		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc.FrequencyHz, test.ShouldEqual, 100)
		test.That(t, sc.Resolution, test.ShouldEqual, 20000)
		test.That(t, sc.MinDuty, test.ShouldEqual, 1000)
		test.That(t, sc.MaxDuty, test.ShouldEqual, 5000)

		// 3000 of 20000 ticks in a 10ms period is a 1500us pulse
		test.That(t, sc.DutyForAngle(90), test.ShouldEqual, 3000)
	})

	t.Run("resolution override keeps the pulse widths", func(t *testing.T) {
		res := uint32(8192)
		conf := &Config{Board: "board1", Pin: "12", Preset: "sg90", Resolution: &res}
		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc.MinDuty, test.ShouldEqual, 204)
		test.That(t, sc.MaxDuty, test.ShouldEqual, 1064)
	})

	t.Run("explicit duties are taken as given", func(t *testing.T) {
		freq := uint(100)
		minDuty, maxDuty := uint32(1100), uint32(4900)
		conf := &Config{Board: "board1", Pin: "12", Frequency: &freq, MinDuty: &minDuty, MaxDuty: &maxDuty}
		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc.MinDuty, test.ShouldEqual, 1100)
		test.That(t, sc.MaxDuty, test.ShouldEqual, 4900)
	})

	t.Run("preset from catalog file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "servos.toml")
		test.That(t, os.WriteFile(path, []byte(presetCatalog), 0o600), test.ShouldBeNil)

		conf := &Config{Board: "board1", Pin: "12", Preset: "wrist", PresetsFile: path}
		_, _, err := conf.Validate("path")
		test.That(t, err, test.ShouldBeNil)

		sc, err := conf.servoConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sc.MinDuty, test.ShouldEqual, 2300)

		start, err := conf.startAngle(sc)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, start, test.ShouldEqual, 90.0)
	})
}
