package text

import (
	"fmt"
	"io"
	"strings"
	"time"

	"funnel-service/internal/funnel/core/domain"
)

// NotApplicable is printed for rates whose denominator is zero.
const NotApplicable = "n/a"

const ruleWidth = 80

// WriteReport prints the report in the funnel tool's plain-text layout.
func WriteReport(w io.Writer, r *domain.FunnelReport) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "- loaded in: %s\n", seconds(r.LoadDuration))
	fmt.Fprintf(&b, "- users found: %d\n", r.TotalUsers)
	fmt.Fprintf(&b, "- unique events found: %d\n", r.TotalEventTypes)

	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	fmt.Fprintf(&b, "Checking %s => %s within %d seconds\n", r.StartEvent, r.EndEvent, r.Gap)
	fmt.Fprintf(&b, "- query ran in %s\n", seconds(r.QueryDuration))
	fmt.Fprintf(&b, "- events scanned: %d\n", r.EventsScanned)
	fmt.Fprintf(&b, "Unique starts: %d\n", r.StartCount)
	fmt.Fprintf(&b, "Unique completes: %d\n", r.EndCount)
	fmt.Fprintf(&b, "Complete rate: %s\n", optional(r.CompletionRate, "%.2f%%"))
	fmt.Fprintf(&b, "Total completes: %d\n", r.TotalMatches)
	fmt.Fprintf(&b, "Completes per user: %s\n", optional(r.MatchesPerUser, "%.2f"))
	fmt.Fprintf(&b, "Average arrival time: %s\n", optional(r.MeanLatency, "%.2fs"))
	fmt.Fprintf(&b, "Approx median arrival time: %ds\n", r.MedianLatency)

	_, err := io.WriteString(w, b.String())
	return err
}

func optional(v *float64, format string) string {
	if v == nil {
		return NotApplicable
	}
	return fmt.Sprintf(format, *v)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
