package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/handlers"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/realtime"
)

// Deps are the shared services the routes are built from.
type Deps struct {
	DB       *gorm.DB
	Cfg      config.Config
	Log      *logger.Logger
	Mail     email.Sender
	Links    email.Links
	Accounts *accounts.Service
	Hub      *realtime.Hub
	CRM      handlers.ContactSource
	Calendar handlers.Calendar
}

func Register(router *gin.Engine, deps Deps) {
	cfg := deps.Cfg
	db := deps.DB
	loc := cfg.Location()

	router.Use(middleware.CORS(cfg.AllowedOrigins()))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "parakeet"})
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db, cfg, deps.Accounts, deps.Log)
	adminHandler := handlers.NewAdminHandler(deps.Accounts, deps.CRM, deps.Log)
	staffHandler := handlers.NewStaffHandler(db, deps.Log)
	attendanceHandler := handlers.NewAttendanceHandler(db, cfg, deps.Log)
	settingsHandler := handlers.NewSettingsHandler(db, cfg, deps.Log)
	leaveHandler := handlers.NewLeaveHandler(db, deps.Mail, deps.Log)
	assignmentHandler := handlers.NewAssignmentHandler(db, deps.Mail, deps.Links, cfg.UploadDir, loc, deps.Log)
	eventHandler := handlers.NewEventHandler(db, deps.Log)
	messagingHandler := handlers.NewMessagingHandler(db, deps.Hub, deps.Log)
	socketHandler := handlers.NewSocketHandler(db, deps.Hub, cfg.JwtSecret, cfg.AllowedOrigins(), deps.Log)
	avatarHandler := handlers.NewAvatarHandler(db, deps.Log)
	reviewHandler := handlers.NewReviewHandler(db, loc, deps.Log)
	calendarHandler := handlers.NewCalendarHandler(deps.Calendar, loc, cfg.IsProduction(), deps.Log)
	dashboardHandler := handlers.NewDashboardHandler(db, cfg, deps.Log)

	staffOnly := middleware.RequireAnyRole(models.StaffRoles...)
	adminOnly := middleware.RequireAnyRole(models.RoleAdmin)
	adminOrFacilitator := middleware.RequireAnyRole(models.RoleAdmin, models.RoleFacilitator)
	traineeOnly := middleware.RequireAnyRole(models.RoleTrainee)

	router.POST("/authenticator/user", authHandler.Login)
	router.GET("/authenticator/send-password-reset-email", authHandler.SendPasswordResetEmail)
	router.POST("/authenticator/send-password-reset-email", authHandler.SendPasswordResetEmail)
	router.PATCH("/authenticator/reset-password", authHandler.ResetPassword)
	router.GET("/token/reset-password/:token", authHandler.ResetPasswordLink)
	router.GET("/token/verify-user-token/:userToken", authHandler.VerifyUserLink)
	router.PATCH("/user-account-verification/verify-account", authHandler.VerifyAccount)
	router.POST("/auth/refresh", authHandler.Refresh)
	router.POST("/auth/logout", authHandler.Logout)

	router.GET("/ws", socketHandler.Connect)
	router.GET("/avatars/:userId", avatarHandler.Get)
	router.GET("/auth", calendarHandler.Authorize)
	router.GET("/oauth2callback", calendarHandler.Callback)

	protected := router.Group("/")
	protected.Use(middleware.AuthRequired(cfg.JwtSecret))
	{
		protected.GET("/authenticator/user", authHandler.Me)
		protected.PUT("/me/password", authHandler.ChangePassword)
		protected.GET("/dashboard", dashboardHandler.Get)

		protected.GET("/settings/office", settingsHandler.GetOffice)
		protected.PUT("/settings/office", adminOnly, settingsHandler.UpdateOffice)

		admin := protected.Group("/admin", adminOnly)
		admin.POST("/onboard", adminHandler.Onboard)
		admin.GET("/send-user-invites", adminHandler.SendUserInvites)
		admin.POST("/send-user-invites", adminHandler.SendUserInvites)
		admin.POST("/users", adminHandler.CreateUser)
		protected.GET("/cohorts", staffOnly, adminHandler.Cohorts)

		protected.POST("/facilitator/add-trainee", middleware.RequireAnyRole(models.RoleFacilitator, models.RoleAdmin), staffHandler.AddTrainee(models.RoleFacilitator))
		protected.POST("/technical-mentor/add-trainee", middleware.RequireAnyRole(models.RoleTechnicalMentor, models.RoleAdmin), staffHandler.AddTrainee(models.RoleTechnicalMentor))
		protected.POST("/career-coach/add-trainee", middleware.RequireAnyRole(models.RoleCareerCoach, models.RoleAdmin), staffHandler.AddTrainee(models.RoleCareerCoach))
		protected.GET("/staff/trainees", staffOnly, staffHandler.ListTrainees)

		protected.POST("/attendance/clock-in", attendanceHandler.ClockIn)
		protected.POST("/attendance/clock-out", attendanceHandler.ClockOut)
		protected.GET("/attendance/status", attendanceHandler.Status)
		protected.GET("/attendance/me", attendanceHandler.Mine)
		protected.GET("/attendance/user/:email", attendanceHandler.ForUser)
		protected.GET("/attendance", adminOrFacilitator, attendanceHandler.List)
		protected.DELETE("/attendance/:id", adminOnly, attendanceHandler.Delete)

		protected.POST("/leave", traineeOnly, leaveHandler.Create)
		protected.GET("/leave/me", leaveHandler.Mine)
		protected.GET("/leave/user/:email", leaveHandler.ForUser)
		protected.GET("/leave", adminOnly, leaveHandler.List)
		protected.PUT("/leave/:id", leaveHandler.Update)
		protected.PATCH("/leave/:id/process", adminOnly, leaveHandler.Process)
		protected.DELETE("/leave/:id", leaveHandler.Delete)

		protected.POST("/assignments", staffOnly, assignmentHandler.Create)
		protected.GET("/assignments", staffOnly, assignmentHandler.List)
		protected.GET("/assignments/my", assignmentHandler.Mine)
		protected.GET("/assignments/submissions", staffOnly, assignmentHandler.Submissions)
		protected.GET("/assignments/files/:filename", assignmentHandler.Download)
		protected.GET("/assignments/:id", assignmentHandler.Get)
		protected.PUT("/assignments/:id", staffOnly, assignmentHandler.Update)
		protected.DELETE("/assignments/:id", staffOnly, assignmentHandler.Delete)
		protected.POST("/assignments/:id/submit", assignmentHandler.Submit)
		protected.POST("/assignments/:id/grade", staffOnly, assignmentHandler.Grade)

		events := protected.Group("/api/events")
		events.GET("", eventHandler.List)
		events.POST("", staffOnly, eventHandler.Create)
		events.GET("/user/:email", eventHandler.ForUser)
		events.GET("/:id", eventHandler.Get)
		events.PUT("/:id", staffOnly, eventHandler.Update)
		events.DELETE("/:id", staffOnly, eventHandler.Delete)
		events.POST("/:id/attendance", eventHandler.RSVP)

		protected.POST("/conversations", messagingHandler.GetOrCreateConversation)
		protected.GET("/conversations/find/:userId1/:userId2", messagingHandler.FindConversation)
		protected.GET("/conversations/:userId", messagingHandler.UserConversations)

		messages := protected.Group("/messages")
		messages.GET("", messagingHandler.ListMessages)
		messages.POST("", messagingHandler.SendMessage)
		messages.GET("/recent", messagingHandler.Recent)
		messages.GET("/online", messagingHandler.OnlineUsers)
		messages.POST("/reactions", messagingHandler.React)
		messages.GET("/conversations/:id/messages", messagingHandler.ConversationMessages)
		messages.GET("/conversations/:id/lastMessage", messagingHandler.LastMessage)
		messages.GET("/users/:userId/messages", messagingHandler.UserMessages)
		messages.PUT("/:messageId", messagingHandler.EditMessage)
		messages.DELETE("/:messageId", messagingHandler.DeleteMessage)

		protected.POST("/avatars/:userId", avatarHandler.Upload)

		protected.GET("/reviews", staffOnly, reviewHandler.List)
		protected.POST("/reviews", staffOnly, reviewHandler.Create)
		protected.GET("/reviews/:id", staffOnly, reviewHandler.Get)

		protected.GET("/calendar/meetings", staffOnly, calendarHandler.Meetings)
		protected.POST("/calendar/meetings", staffOnly, calendarHandler.CreateMeeting)
		protected.POST("/calendar/availability", staffOnly, calendarHandler.Availability)
	}
}
