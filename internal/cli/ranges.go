package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/timerange"
)

// RangesOptions holds flags for the ranges command.
type RangesOptions struct {
	*RootOptions
	Contains  string // optional - report whether the result covers this range
	Intersect string // optional - clip the result to this range
}

// RangeJSON is a half-open range in exact textual form.
type RangeJSON struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// RangesResult holds the outcome of a ranges run.
type RangesResult struct {
	List         string      `json:"list"`
	Ranges       []RangeJSON `json:"ranges"`
	Contains     *bool       `json:"contains,omitempty"`
	Intersection []RangeJSON `json:"intersection,omitempty"`
}

// NewRangesCommand creates the ranges command.
func NewRangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RangesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ranges (insert|remove) <in..out>...",
		Short: "Evaluate time range list arithmetic",
		Long: `Build a time range list by inserting and removing half-open ranges,
left to right, and print the resulting list.

A verb applies to every range after it until the next verb. Times are
ints, decimals or "n/d" rationals. Touching or overlapping inserted
ranges merge.

Examples:
  cutline ranges insert 0..10 10..20 remove 5..6
  cutline ranges insert 10/3..20 15..25 remove 12..13 --contains 20..21
  cutline ranges insert 0..100 --intersect 50..150 --format json`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRanges(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Contains, "contains", "", "report whether the list covers this range")
	cmd.Flags().StringVar(&opts.Intersect, "intersect", "", "print the parts of the list inside this range")

	return cmd
}

func runRanges(opts *RangesOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	list, err := evalRanges(args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
	}

	result := RangesResult{List: list.String(), Ranges: rangesJSON(list)}
	if opts.Contains != "" {
		r, err := ParseRange(opts.Contains)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
		}
		covered := list.ContainsTimeRange(r)
		result.Contains = &covered
	}
	var clipped timerange.List
	if opts.Intersect != "" {
		r, err := ParseRange(opts.Intersect)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err.Error())
		}
		clipped = list.Intersects(r)
		result.Intersection = rangesJSON(clipped)
	}
	opts.logger().Debug("ranges evaluated", "args", len(args), "ranges", list.Len())

	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintln(w, result.List)
	if result.Contains != nil {
		fmt.Fprintf(w, "contains %s: %t\n", opts.Contains, *result.Contains)
	}
	if opts.Intersect != "" {
		fmt.Fprintf(w, "intersect %s: %s\n", opts.Intersect, clipped)
	}
	return nil
}

// evalRanges applies insert/remove verbs left to right.
func evalRanges(args []string) (timerange.List, error) {
	var (
		list timerange.List
		verb string
	)
	for _, arg := range args {
		switch arg {
		case "insert", "remove":
			verb = arg
			continue
		}
		if verb == "" {
			return list, fmt.Errorf("range %q before insert or remove", arg)
		}
		r, err := ParseRange(arg)
		if err != nil {
			return list, err
		}
		if verb == "insert" {
			list.InsertTimeRange(r)
		} else {
			list.RemoveTimeRange(r)
		}
	}
	return list, nil
}

// ParseRange reads "in..out". in must not be after out.
func ParseRange(s string) (timerange.TimeRange, error) {
	inText, outText, ok := strings.Cut(s, "..")
	if !ok {
		return timerange.TimeRange{}, fmt.Errorf("range %q: want in..out", s)
	}
	in, err := rational.Parse(strings.TrimSpace(inText))
	if err != nil {
		return timerange.TimeRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	out, err := rational.Parse(strings.TrimSpace(outText))
	if err != nil {
		return timerange.TimeRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	r, err := timerange.New(in, out)
	if err != nil {
		return timerange.TimeRange{}, fmt.Errorf("range %q: %w", s, err)
	}
	return r, nil
}

func rangesJSON(l timerange.List) []RangeJSON {
	out := make([]RangeJSON, 0, l.Len())
	for r := range l.All() {
		out = append(out, RangeJSON{In: r.In().String(), Out: r.Out().String()})
	}
	return out
}
