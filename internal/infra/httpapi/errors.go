package httpapi

import (
	"errors"
	"net/http"

	"degree_plan_review/internal/domain/review"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorKind struct {
	target error
	status int
	code   string
}

// Order matters: the first matching sentinel decides the response.
var errorKinds = []errorKind{
	{review.ErrMissingAdvisor, http.StatusNotFound, "missing_advisor"},
	{review.ErrNotFound, http.StatusNotFound, "not_found"},
	{review.ErrEmptyPlan, http.StatusBadRequest, "empty_plan"},
	{review.ErrEmptySemester, http.StatusBadRequest, "empty_semester"},
	{review.ErrDuplicatePending, http.StatusBadRequest, "duplicate_pending"},
	{review.ErrMissingMentorForFYE, http.StatusBadRequest, "missing_mentor_for_fye"},
	{review.ErrNoPendingReviews, http.StatusBadRequest, "no_pending_reviews"},
	{review.ErrValidation, http.StatusBadRequest, "validation"},
	{review.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
}

func respondError(c *gin.Context, logger *logrus.Entry, err error) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		body := gin.H{"error": err.Error(), "code": k.code}
		var np *review.NoPendingError
		if errors.As(err, &np) {
			body["reason"] = np.Reason
		}
		c.AbortWithStatusJSON(k.status, body)
		return
	}

	logger.WithFields(logrus.Fields{
		"request_id": c.GetString(ctxRequestID),
		"path":       c.FullPath(),
	}).WithError(err).Error("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "validation"})
}
