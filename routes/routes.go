package routes

import (
	"github.com/gin-gonic/gin"

	"manuscript-review-api/controllers"
	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
)

func SetupRoutes(router *gin.Engine, h *controllers.Handler, auth middleware.Authenticator) {
	staff := middleware.RequireRole(models.RoleEditor, models.RoleAdmin)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/auth/register", h.Register)
			public.POST("/auth/login", h.Login)
			public.GET("/health", h.Health)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(auth))
		{
			protected.GET("/auth/profile", h.GetProfile)

			// Manuscripts
			manuscripts := protected.Group("/manuscripts")
			{
				manuscripts.POST("/submit", middleware.RequireRole(models.RoleAuthor), h.SubmitManuscript)
				manuscripts.GET("/my-manuscripts", middleware.RequireRole(models.RoleAuthor), h.GetMyManuscripts)
				manuscripts.GET("/assigned", middleware.RequireRole(models.RoleReviewer), h.GetAssignedManuscripts)
				manuscripts.GET("", staff, h.GetAllManuscripts)
				manuscripts.GET("/:id", h.GetManuscript)
				manuscripts.GET("/:id/history", h.GetManuscriptHistory)

				manuscripts.PUT("/:id/assign-reviewers", staff, h.AssignReviewers)
				manuscripts.PUT("/:id/status", staff, h.UpdateStatus)
				manuscripts.PUT("/:id/decision", staff, h.MakeDecision)
				manuscripts.GET("/:id/reviews", staff, h.GetManuscriptReviews)

				manuscripts.POST("/:id/submit-review", middleware.RequireRole(models.RoleReviewer), h.SubmitReview)
			}

			// Notifications (owner-scoped)
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.GetNotifications)
				notifications.GET("/unread-count", h.GetUnreadCount)
				notifications.PATCH("/read-all", h.MarkAllNotificationsRead)
				notifications.PATCH("/:id/read", h.MarkNotificationRead)
				notifications.DELETE("/all", h.DeleteAllNotifications)
				notifications.DELETE("/:id", h.DeleteNotification)
			}

			// User administration
			users := protected.Group("/users")
			users.Use(middleware.RequireRole(models.RoleAdmin))
			{
				users.GET("", h.ListUsers)
				users.PATCH("/:id/activation", h.SetUserActivation)
			}
		}
	}

	router.NoRoute(controllers.NotFound)
}
