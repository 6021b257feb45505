package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Submissions interface {
	CreateDegreePlanReview(ctx context.Context, degreePlanID, studentID int64) ([]*review.Request, error)
	CreateReviewRequest(ctx context.Context, planSemesterID, studentID int64) (*review.Request, error)
	PlanReviewStatus(ctx context.Context, degreePlanID, requesterID int64, requesterRole user.Role) (*app.PlanStatus, error)
}

type Reviews interface {
	SubmitMentorDecision(ctx context.Context, requestID, reviewerID int64, d review.Decision) (*review.Request, error)
	SubmitAdvisorDecision(ctx context.Context, requestID, reviewerID int64, d review.Decision) (*review.Request, error)
	SubmitBulkDecision(ctx context.Context, in app.BulkDecision) ([]*review.Request, error)
	UpdateComment(ctx context.Context, requestID, reviewerID int64, stage review.Stage, text string) (*review.Request, error)
}

type Admin interface {
	ReclassifyPendingMentorRequests(ctx context.Context) ([]*review.Request, error)
	DeleteReviewRequest(ctx context.Context, requestID int64) error
}

type Handler struct {
	submissions Submissions
	reviews     Reviews
	admin       Admin
	logger      *logrus.Entry
}

func NewHandler(s Submissions, r Reviews, a Admin, logger *logrus.Entry) *Handler {
	return &Handler{submissions: s, reviews: r, admin: a, logger: logger}
}

type decisionRequest struct {
	Approve         *bool  `json:"approve" binding:"required"`
	Comment         string `json:"comment"`
	RejectionReason string `json:"rejectionReason"`
}

type bulkDecisionRequest struct {
	Approve                *bool                 `json:"approve" binding:"required"`
	SemesterComments       []app.SemesterComment `json:"semesterComments"`
	GeneralRejectionReason string                `json:"generalRejectionReason"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// CreateDegreePlanReview submits every non-empty semester of the caller's plan.
func (h *Handler) CreateDegreePlanReview(c *gin.Context) {
	planID, ok := idParam(c, "planID")
	if !ok {
		return
	}
	userID, _ := currentUser(c)

	requests, err := h.submissions.CreateDegreePlanReview(c.Request.Context(), planID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"requests": requests, "total": len(requests)})
}

func (h *Handler) CreateReviewRequest(c *gin.Context) {
	semesterID, ok := idParam(c, "semesterID")
	if !ok {
		return
	}
	userID, _ := currentUser(c)

	req, err := h.submissions.CreateReviewRequest(c.Request.Context(), semesterID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) PlanReviewStatus(c *gin.Context) {
	planID, ok := idParam(c, "planID")
	if !ok {
		return
	}
	userID, role := currentUser(c)

	status, err := h.submissions.PlanReviewStatus(c.Request.Context(), planID, userID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) MentorDecision(c *gin.Context) {
	h.decide(c, h.reviews.SubmitMentorDecision)
}

func (h *Handler) AdvisorDecision(c *gin.Context) {
	h.decide(c, h.reviews.SubmitAdvisorDecision)
}

func (h *Handler) decide(c *gin.Context, submit func(ctx context.Context, requestID, reviewerID int64, d review.Decision) (*review.Request, error)) {
	requestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body decisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	userID, _ := currentUser(c)

	req, err := submit(c.Request.Context(), requestID, userID, review.Decision{
		Approve:         *body.Approve,
		Comment:         body.Comment,
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// BulkDecision applies one decision to every semester of the plan pending the caller's stage.
func (h *Handler) BulkDecision(c *gin.Context) {
	planID, ok := idParam(c, "planID")
	if !ok {
		return
	}
	var body bulkDecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	userID, role := currentUser(c)

	requests, err := h.reviews.SubmitBulkDecision(c.Request.Context(), app.BulkDecision{
		DegreePlanID:           planID,
		ReviewerID:             userID,
		Stage:                  stageForRole(role),
		Approve:                *body.Approve,
		SemesterComments:       body.SemesterComments,
		GeneralRejectionReason: body.GeneralRejectionReason,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": len(requests)})
}

func (h *Handler) UpdateComment(c *gin.Context) {
	requestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var body commentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	userID, role := currentUser(c)

	req, err := h.reviews.UpdateComment(c.Request.Context(), requestID, userID, stageForRole(role), body.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) Reclassify(c *gin.Context) {
	updated, err := h.admin.ReclassifyPendingMentorRequests(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": updated, "total": len(updated)})
}

func (h *Handler) DeleteReviewRequest(c *gin.Context) {
	requestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteReviewRequest(c.Request.Context(), requestID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func stageForRole(role user.Role) review.Stage {
	if role == user.RoleMentor {
		return review.StageMentor
	}
	return review.StageAdvisor
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
