package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.viam.com/rdk/logging"

	"armservo/periphpwm"
	"armservo/stepservo"
)

const helpText = `Commands:
    f             # step forward from now on
    b             # step backward from now on
    s [n]         # take n steps, 1 if omitted
    m <angle>     # move straight to an angle
    a             # print angle, duty and direction
    q             # quit
`

type benchOptions struct {
	pin         string
	preset      string
	presetsFile string
	start       float64
	debug       bool
}

func newRootCmd() *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "servobench",
		Short: "Step a servo from the terminal",
		Long: `Drives one servo on a host pwm pin through the stepping controller.
The servo starts at the middle of its travel range unless --start is given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.pin, "pin", "", "host pwm pin, e.g. GPIO18")
	flags.StringVar(&opts.preset, "preset", stepservo.DefaultPreset, "servo preset name")
	flags.StringVar(&opts.presetsFile, "presets-file", "", "toml file with extra servo presets")
	flags.Float64Var(&opts.start, "start", 0, "starting angle in degrees")
	flags.BoolVar(&opts.debug, "debug", false, "log every step")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}

// resolveConfig looks the preset up in the presets file first, then in the built-in presets.
func resolveConfig(opts *benchOptions) (stepservo.ServoConfig, error) {
	if opts.presetsFile != "" {
		catalog, err := stepservo.LoadPresetsFile(opts.presetsFile)
		if err != nil {
			return stepservo.ServoConfig{}, err
		}
		sc, ok := catalog.Lookup(opts.preset)
		if !ok {
			return stepservo.ServoConfig{}, errors.Errorf("unknown servo preset %q, have %s",
				opts.preset, strings.Join(catalog.Names(), ", "))
		}
		return sc, nil
	}
	sc, ok := stepservo.Preset(opts.preset)
	if !ok {
		return stepservo.ServoConfig{}, errors.Errorf("unknown servo preset %q, have %s",
			opts.preset, strings.Join(stepservo.PresetNames(), ", "))
	}
	return sc, nil
}

func runBench(cmd *cobra.Command, opts *benchOptions) error {
	ctx := cmd.Context()

	sc, err := resolveConfig(opts)
	if err != nil {
		return err
	}
	start := sc.Midpoint()
	if cmd.Flags().Changed("start") {
		start = opts.start
	}

	logger := logging.NewLogger("servobench")
	if opts.debug {
		logger = logging.NewDebugLogger("servobench")
	}

	out, err := periphpwm.Open(opts.pin)
	if err != nil {
		return err
	}
	s, err := stepservo.New(ctx, opts.pin, sc, out, start, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			logger.Warnw("failed to release servo", "error", err)
		}
	}()

	return repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), s)
}

// repl reads bench commands until q, end of input or a hardware failure.
func repl(ctx context.Context, in io.Reader, out io.Writer, s *stepservo.Servo) error {
	fmt.Fprint(out, helpText)
	printState(out, s)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "f":
			s.Forward()
			printState(out, s)
		case "b":
			s.Backward()
			printState(out, s)
		case "s":
			n := uint64(1)
			if len(parts) > 1 {
				v, err := strconv.ParseUint(parts[1], 10, 32)
				if err != nil {
					fmt.Fprintln(out, "Expected a step count, not", parts[1])
					continue
				}
				n = v
			}
			inRange, err := s.Step(ctx, uint32(n))
			if err != nil {
				return err
			}
			if !inRange {
				fmt.Fprintln(out, "Reached the end of travel")
			}
			printState(out, s)
		case "m":
			if len(parts) < 2 {
				fmt.Fprintln(out, "Not enough parameters")
				continue
			}
			angle, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Fprintln(out, "Expected float, not", parts[1])
				continue
			}
			inRange, err := s.MoveTo(ctx, angle)
			if err != nil {
				return err
			}
			if !inRange {
				fmt.Fprintln(out, "Angle clamped to the travel range")
			}
			printState(out, s)
		case "a":
			printState(out, s)
		case "q":
			return nil
		default:
			fmt.Fprintf(out, "Unknown command %q\n", parts[0])
		}
	}
}

func printState(out io.Writer, s *stepservo.Servo) {
	fmt.Fprintf(out, "angle %.1f duty %d/%d %s\n",
		s.Angle(), s.Duty(), s.Config().Resolution, s.Direction())
}
