package review

import "degree_plan_review/internal/domain/user"

// RoutingInput is everything the routing rules look at.
type RoutingInput struct {
	Classification user.Classification
	IsFYEStudent   bool
	Role           user.Role
	HasMentor      bool
	HasAdvisor     bool
}

// Routing is the outcome of the routing rules for one student.
type Routing struct {
	RequiresMentorStage bool
	InitialStatus       Status
}

// RoutingInputFor derives the routing input from a student's current record.
func RoutingInputFor(u *user.User) RoutingInput {
	return RoutingInput{
		Classification: u.Classification,
		IsFYEStudent:   u.IsFYEStudent,
		Role:           u.Role,
		HasMentor:      u.MentorID.Valid,
		HasAdvisor:     u.AdvisorID.Valid,
	}
}

// Route decides which stage a student's requests start in. Rules are evaluated in order:
// an advisor is mandatory, an FYE freshman needs a mentor, and only freshmen and sophomores
// with a mentor (who are not mentors themselves) go through the mentor stage.
func Route(in RoutingInput) (Routing, error) {
	if !in.HasAdvisor {
		return Routing{}, ErrMissingAdvisor
	}
	if in.Classification == user.ClassificationFreshman && in.IsFYEStudent && !in.HasMentor {
		return Routing{}, ErrMissingMentorForFYE
	}

	requiresMentor := in.Role != user.RoleMentor && underclass(in.Classification) && in.HasMentor
	if requiresMentor {
		return Routing{RequiresMentorStage: true, InitialStatus: StatusPendingMentor}, nil
	}
	return Routing{InitialStatus: StatusPendingAdvisor}, nil
}

func underclass(c user.Classification) bool {
	return c == user.ClassificationFreshman || c == user.ClassificationSophomore
}
