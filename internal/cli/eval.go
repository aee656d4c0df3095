package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Kind string
	At   []string
}

// EvalSample is a track value at one time.
type EvalSample struct {
	Time  string `json:"time"`
	Value string `json:"value"`
}

// EvalResult holds the samples of an eval run.
type EvalResult struct {
	Kind      string       `json:"kind"`
	Keyframes []string     `json:"keyframes"`
	Samples   []EvalSample `json:"samples"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <time=value[:interpolation]>...",
		Short: "Evaluate a keyframe track",
		Long: `Build a keyframe track and evaluate it at the given times.

Each keyframe is time=value with an optional interpolation (linear, hold
or bezier) governing the segment that starts at it. Numbers interpolate
exactly; bools and text always hold. A keyframe repeated at the same
time replaces the earlier one.

Examples:
  cutline eval 0=0 10=1 --at 5 --at 10/3
  cutline eval 0=0:hold 10=1 --at 9
  cutline eval --kind text 0=intro 24=main --at 12`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "number", "value kind (number|bool|text)")
	cmd.Flags().StringArrayVar(&opts.At, "at", nil, "time to evaluate at (repeatable, required)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func runEval(opts *EvalOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	kind, err := parseKind(opts.Kind)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
	}

	track := keyframe.NewTrack()
	for _, arg := range args {
		k, err := ParseKeyframe(kind, arg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
		}
		if prev, replaced := track.InsertKeyframe(k); replaced {
			formatter.VerboseLog("replaced keyframe %s", prev)
		}
	}

	result := EvalResult{Kind: kind.String(), Keyframes: []string{}, Samples: []EvalSample{}}
	for _, k := range track.Keyframes() {
		result.Keyframes = append(result.Keyframes, k.String())
	}
	for _, text := range opts.At {
		at, err := rational.Parse(text)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
		}
		v, err := track.ValueAt(at, kind)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error())
		}
		result.Samples = append(result.Samples, EvalSample{Time: at.String(), Value: v.String()})
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for _, s := range result.Samples {
		fmt.Fprintf(formatter.Writer, "%s = %s\n", s.Time, s.Value)
	}
	return nil
}

func parseKind(s string) (keyframe.Kind, error) {
	for _, k := range []keyframe.Kind{keyframe.KindNumber, keyframe.KindBool, keyframe.KindText} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q: must be number, bool or text", s)
}

// ParseKeyframe reads "time=value" or "time=value:interpolation".
func ParseKeyframe(kind keyframe.Kind, s string) (keyframe.Keyframe, error) {
	timeText, rest, ok := strings.Cut(s, "=")
	if !ok {
		return keyframe.Keyframe{}, fmt.Errorf("keyframe %q: want time=value", s)
	}
	at, err := rational.Parse(timeText)
	if err != nil {
		return keyframe.Keyframe{}, fmt.Errorf("keyframe %q: %w", s, err)
	}

	valueText, interpText := rest, ""
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if _, err := keyframe.ParseInterpolation(rest[i+1:]); err == nil {
			valueText, interpText = rest[:i], rest[i+1:]
		}
	}
	interp, err := keyframe.ParseInterpolation(interpText)
	if err != nil {
		return keyframe.Keyframe{}, fmt.Errorf("keyframe %q: %w", s, err)
	}
	v, err := keyframe.ParseValue(kind, valueText)
	if err != nil {
		return keyframe.Keyframe{}, fmt.Errorf("keyframe %q: %w", s, err)
	}
	return keyframe.New(at, v, interp), nil
}
