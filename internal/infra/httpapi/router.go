package httpapi

import (
	"net/http"

	"degree_plan_review/internal/domain/user"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the review API on a fresh gin engine.
func NewRouter(h *Handler, jwtSecret []byte, users user.Repository, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"message": "Degree plan review API is running",
			})
		})

		protected := v1.Group("")
		protected.Use(AuthMiddleware(jwtSecret, users))
		{
			plans := protected.Group("/degree-plans/:planID")
			{
				plans.GET("/reviews", h.PlanReviewStatus)
				plans.POST("/reviews", RequireRole(user.RoleStudent, user.RoleMentor), h.CreateDegreePlanReview)
				plans.POST("/bulk-decision", RequireRole(user.RoleMentor, user.RoleAdvisor), h.BulkDecision)
			}

			protected.POST("/semesters/:semesterID/reviews", RequireRole(user.RoleStudent, user.RoleMentor), h.CreateReviewRequest)

			reviews := protected.Group("/reviews/:id")
			{
				reviews.POST("/mentor-decision", RequireRole(user.RoleMentor), h.MentorDecision)
				reviews.POST("/advisor-decision", RequireRole(user.RoleAdvisor), h.AdvisorDecision)
				reviews.PATCH("/comment", RequireRole(user.RoleMentor, user.RoleAdvisor), h.UpdateComment)
			}

			admin := protected.Group("/admin", RequireRole(user.RoleAdmin))
			{
				admin.POST("/reviews/reclassify", h.Reclassify)
				admin.DELETE("/reviews/:id", h.DeleteReviewRequest)
			}
		}
	}

	return router
}
