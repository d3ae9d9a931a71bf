package testrun

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/ui/output"
	"go.trai.ch/proof/internal/ui/style"
	"go.trai.ch/zerr"
)

// Report prints the test summary once the build graph has completed.
// It returns domain.ErrTestsFailed when a test failed and failures are not
// tolerated. buildErr is the outcome of the graph and is not inspected.
func (s *Session) Report(_ context.Context, _ error) error {
	summary := s.results.Summarize()
	if summary.Total == 0 {
		return nil
	}

	out := output.NewWithProfile(s.out, output.ColorProfileANSI)
	color := func(c lipgloss.Color) termenv.Color { return out.Color(string(c)) }
	elapsed := s.now().Sub(s.started).Round(time.Millisecond)

	_, _ = fmt.Fprintf(out, "%s tests of session %s\n",
		out.String(style.Tilde).Foreground(color(style.Iris)), s.id)

	for _, rec := range summary.Records {
		if rec.Passed() {
			continue
		}
		icon := out.String(style.StatusIcon(false, s.opts.Permissive)).
			Foreground(color(style.StatusColor(false, s.opts.Permissive)))
		if rec.NotStarted {
			_, _ = fmt.Fprintf(out, "  %s %s (not started)\n", icon, rec.Name)
		} else {
			_, _ = fmt.Fprintf(out, "  %s %s (exit code %d)\n", icon, rec.Name, rec.ExitCode)
		}
	}

	_, _ = fmt.Fprintf(out, "%d test(s): %d passed, %d failed in %s\n",
		summary.Total, summary.Passed, summary.Failed, elapsed)

	if summary.Failed > 0 && !s.opts.Permissive {
		return zerr.With(zerr.Wrap(domain.ErrTestsFailed, "report"), "failed", summary.Failed)
	}
	return nil
}
