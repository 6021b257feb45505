package notification

import (
	"context"
	"fmt"
	"strings"

	"degree_plan_review/internal/domain/review"

	"github.com/google/uuid"
)

// Notice tells a student the outcome of one reviewer action. One notice covers every
// semester touched by that action.
type Notice struct {
	ID                uuid.UUID
	DegreePlanID      int64
	StudentID         int64
	StudentName       string
	StudentEmail      string
	StudentTelegramID int64 // 0 when the student has not linked the bot
	ReviewerID        int64
	ReviewerName      string
	Stage             review.Stage
	Approved          bool
	RejectionReason   string
	Comments          []string
	SemesterCount     int
}

// Subject is a one-line summary used as the e-mail subject.
func (n Notice) Subject() string {
	if n.Approved {
		return fmt.Sprintf("Your degree plan was approved by your %s", n.stageNoun())
	}
	return fmt.Sprintf("Your degree plan was returned by your %s", n.stageNoun())
}

// Body renders the plain-text message shared by every channel.
func (n Notice) Body() string {
	var b strings.Builder
	name := n.StudentName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)

	reviewer := n.ReviewerName
	if reviewer == "" {
		reviewer = "Your " + n.stageNoun()
	}
	semesters := "1 semester"
	if n.SemesterCount != 1 {
		semesters = fmt.Sprintf("%d semesters", n.SemesterCount)
	}
	switch {
	case n.Approved && n.Stage == review.StageMentor:
		fmt.Fprintf(&b, "%s approved %s of your degree plan. It now goes to your advisor for final review.\n", reviewer, semesters)
	case n.Approved:
		fmt.Fprintf(&b, "%s approved %s of your degree plan.\n", reviewer, semesters)
	default:
		fmt.Fprintf(&b, "%s rejected %s of your degree plan.\n", reviewer, semesters)
		if n.RejectionReason != "" {
			fmt.Fprintf(&b, "Reason: %s\n", n.RejectionReason)
		}
	}

	if len(n.Comments) > 0 {
		b.WriteString("\nComments:\n")
		for _, c := range n.Comments {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func (n Notice) stageNoun() string {
	if n.Stage == review.StageMentor {
		return "mentor"
	}
	return "advisor"
}

// Dispatcher accepts notices for delivery after the fact. Dispatch never blocks on
// delivery and never reports delivery errors to the caller.
type Dispatcher interface {
	Dispatch(n Notice)
}

// Sender delivers a notice over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}
