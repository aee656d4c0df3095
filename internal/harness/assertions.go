package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/cutline/internal/graph"
)

// ExpectationError is returned when an expectation fails. It includes the
// trace to help debug the failure.
type ExpectationError struct {
	Type     string       // Expectation type for categorization
	Target   string       // Printed key, empty for stack expectations
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	if e.Target != "" {
		fmt.Fprintf(&buf, "Expectation failed: %s %s\n", e.Type, e.Target)
	} else {
		fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Type)
	}
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		line := fmt.Sprintf("  [%d] %s", ev.Seq, ev.Op)
		if ev.Target != "" {
			line += " " + ev.Target
		}
		if ev.Action != "" {
			line += fmt.Sprintf(" -> %s %q", ev.Action, ev.Group)
		}
		if ev.Error != "" {
			line += " error: " + ev.Error
		}
		fmt.Fprintln(&buf, line)
	}
	return buf.String()
}

// EvaluateExpectations checks every expectation against the harness state
// and returns the failure messages.
func EvaluateExpectations(h *Harness, expectations []Expectation, trace []TraceEvent) []string {
	var errs []string
	for i, exp := range expectations {
		if err := evaluate(h, exp, trace); err != nil {
			errs = append(errs, fmt.Sprintf("expect[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(h *Harness, exp Expectation, trace []TraceEvent) error {
	fail := func(target, expected, actual string) error {
		return &ExpectationError{Type: exp.Type, Target: target, Expected: expected, Actual: actual, Trace: trace}
	}

	switch exp.Type {
	case ExpectCanUndo:
		if got := h.stack.CanUndo(); got != *exp.Is {
			return fail("", fmt.Sprint(*exp.Is), fmt.Sprint(got))
		}
		return nil
	case ExpectCanRedo:
		if got := h.stack.CanRedo(); got != *exp.Is {
			return fail("", fmt.Sprint(*exp.Is), fmt.Sprint(got))
		}
		return nil
	case ExpectUndoText:
		if got := h.stack.UndoText(); got != *exp.Text {
			return fail("", fmt.Sprintf("%q", *exp.Text), fmt.Sprintf("%q", got))
		}
		return nil
	case ExpectRedoText:
		if got := h.stack.RedoText(); got != *exp.Text {
			return fail("", fmt.Sprintf("%q", *exp.Text), fmt.Sprintf("%q", got))
		}
		return nil
	}

	in, e, err := h.resolve(exp.Target)
	if err != nil {
		return err
	}
	key := in.Key(e).String()

	switch exp.Type {
	case ExpectValueAt:
		want, err := graph.ParseTypedValue(in.Def().Type, exp.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		got, err := in.ValueAt(e, exp.Time.Rational)
		if err != nil {
			return fail(key, want.String(), "error: "+err.Error())
		}
		if !got.Equal(want) {
			return fail(key, fmt.Sprintf("%s at %s", want, exp.Time.Rational), fmt.Sprintf("%s", got))
		}

	case ExpectKeyframed:
		if got := in.IsKeyframed(e); got != *exp.Is {
			return fail(key, fmt.Sprint(*exp.Is), fmt.Sprint(got))
		}

	case ExpectKeyframeCount:
		count := 0
		tracks := in.KeyframeTracks(e)
		if tracks != nil {
			if exp.Track < 0 || exp.Track >= len(tracks) {
				return fmt.Errorf("%s: %w: %d", key, graph.ErrTrackOutOfRange, exp.Track)
			}
			count = tracks[exp.Track].Len()
		}
		if count != *exp.Count {
			return fail(key, fmt.Sprintf("%d keyframes on track %d", *exp.Count, exp.Track), fmt.Sprint(count))
		}

	case ExpectArraySize:
		if got := in.ArraySize(); got != *exp.Count {
			return fail(key, fmt.Sprint(*exp.Count), fmt.Sprint(got))
		}
	}
	return nil
}
