// Package output renders review requests for the command line.
package output

import (
	"fmt"
	"io"
	"os"

	"degree_plan_review/internal/domain/review"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

func New(out, errOut io.Writer) *UI {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &UI{Out: out, ErrOut: errOut}
}

var (
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// StatusColor colors a review status: pending yellow, approved green, rejected red.
func StatusColor(s review.Status) string {
	switch s {
	case review.StatusApproved:
		return green(string(s))
	case review.StatusRejected:
		return red(string(s))
	case review.StatusPendingMentor, review.StatusPendingAdvisor:
		return yellow(string(s))
	default:
		return string(s)
	}
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

// Requests prints one row per review request.
func (u *UI) Requests(requests []*review.Request) error {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"ID", "PLAN", "SEMESTER", "STUDENT", "STATUS", "REASON"})
	for _, r := range requests {
		reason := ""
		if r.RejectionReason != nil {
			reason = *r.RejectionReason
		}
		if err := table.Append([]string{
			cyan(fmt.Sprint(r.ID)),
			fmt.Sprint(r.DegreePlanID),
			fmt.Sprint(r.PlanSemesterID),
			fmt.Sprint(r.StudentID),
			StatusColor(r.Status),
			reason,
		}); err != nil {
			return fmt.Errorf("render request %d: %w", r.ID, err)
		}
	}
	return table.Render()
}
