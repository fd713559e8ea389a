package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/config"
	"github.com/pthanh137/pbl3-lms/database"
	"github.com/pthanh137/pbl3-lms/handlers"
	admin_handlers "github.com/pthanh137/pbl3-lms/handlers/admin"
	announcement_handlers "github.com/pthanh137/pbl3-lms/handlers/announcement"
	auth_handlers "github.com/pthanh137/pbl3-lms/handlers/auth"
	cart_handlers "github.com/pthanh137/pbl3-lms/handlers/cart"
	certificate_handlers "github.com/pthanh137/pbl3-lms/handlers/certificate"
	course_handlers "github.com/pthanh137/pbl3-lms/handlers/course"
	enrollment_handlers "github.com/pthanh137/pbl3-lms/handlers/enrollment"
	lesson_handlers "github.com/pthanh137/pbl3-lms/handlers/lesson"
	message_handlers "github.com/pthanh137/pbl3-lms/handlers/message"
	notification_handlers "github.com/pthanh137/pbl3-lms/handlers/notification"
	payment_handlers "github.com/pthanh137/pbl3-lms/handlers/payment"
	review_handlers "github.com/pthanh137/pbl3-lms/handlers/review"
	section_handlers "github.com/pthanh137/pbl3-lms/handlers/section"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/email"
	"github.com/pthanh137/pbl3-lms/services/storage"
	"github.com/pthanh137/pbl3-lms/utils/auth"
	"github.com/pthanh137/pbl3-lms/utils/cache"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
)

// SetupRoutes wires every service, handler and middleware onto the Fiber
// app. Route groups are ordered public catalog first, then student,
// teacher and admin surfaces.
func SetupRoutes(app *fiber.App, store database.Storage) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read environment: ", err)
	}

	if getEnv.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "pbl3-lms-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        getEnv.JWT_SECRET,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	db := store.DB()

	// Redis backs brute force lockouts and the analytics cache. Both
	// degrade gracefully when it is unreachable.
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and analytics caching are disabled.", err)
		redisCache = nil
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	mailer := email.NewMailer(getEnv.SENDGRID_API_KEY, "PBL3 LMS", getEnv.MAIL_FROM)

	// Object storage is optional in local development. Uploads return an
	// error when it is not configured.
	var spacesClient *storage.SpacesClient
	if getEnv.SPACES_KEY != "" {
		spacesClient, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: getEnv.SPACES_KEY,
			SecretKey: getEnv.SPACES_SECRET,
			Bucket:    getEnv.SPACES_BUCKET,
			Region:    getEnv.SPACES_REGION,
			Endpoint:  getEnv.SPACES_ENDPOINT,
			CDNURL:    os.Getenv("SPACES_CDN_URL"),
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize object storage: %v. Uploads are disabled.", err)
			spacesClient = nil
		}
	} else {
		log.Println("Object storage not configured, uploads are disabled")
	}

	// Services
	progressService := services.NewProgressService(db)
	enrollmentService := services.NewEnrollmentService(db)
	certificateService := services.NewCertificateService(db)
	cartService := services.NewCartService(db)
	reviewService := services.NewReviewService(db)
	notificationService := services.NewNotificationService(db)
	analyticsService := services.NewAnalyticsService(db, redisCache)
	messageService := services.NewMessageService(db)
	announcementService := services.NewAnnouncementService(db, notificationService)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection, mailer, getEnv.APP_URL)
	courseHandler := course_handlers.NewCourseHandler(db, reviewService, spacesClient)
	sectionHandler := section_handlers.NewSectionHandler(db)
	lessonHandler := lesson_handlers.NewLessonHandler(db, progressService, notificationService, spacesClient)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(db, enrollmentService, notificationService, mailer)
	certificateHandler := certificate_handlers.NewCertificateHandler(db, certificateService, notificationService, mailer)
	cartHandler := cart_handlers.NewCartHandler(cartService, mailer)
	paymentHandler := payment_handlers.NewPaymentHandler(db)
	reviewHandler := review_handlers.NewReviewHandler(reviewService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)
	adminHandler := admin_handlers.NewAdminHandler(db)
	analyticsHandler := admin_handlers.NewAnalyticsHandler(analyticsService)
	messageHandler := message_handlers.NewMessageHandler(messageService)
	announcementHandler := announcement_handlers.NewAnnouncementHandler(announcementService)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckLocked(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/logout-all", authMiddleware.Required(), authHandler.LogoutAll)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Course catalog. Listing and detail pages are public; the optional
	// auth lets owners and admins see their unpublished drafts.
	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)
	courses.Post("/", authMiddleware.RequireTeacher(), courseHandler.CreateCourse)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Put("/:id", authMiddleware.RequireTeacherOrAdmin(), courseHandler.UpdateCourse)
	courses.Delete("/:id", authMiddleware.RequireTeacherOrAdmin(), courseHandler.DeleteCourse)
	courses.Post("/:id/publish", authMiddleware.RequireTeacherOrAdmin(), courseHandler.PublishCourse)
	courses.Post("/:id/unpublish", authMiddleware.RequireTeacherOrAdmin(), courseHandler.UnpublishCourse)
	courses.Post("/:id/thumbnail", authMiddleware.RequireTeacherOrAdmin(), courseHandler.UploadThumbnail)

	// Teacher's own catalog view
	api.Get("/teacher/courses", authMiddleware.RequireTeacher(), courseHandler.ListMyCourses)

	// Sections (nested under courses for listing and creation)
	courses.Get("/:id/sections", sectionHandler.ListSections)
	courses.Post("/:id/sections", authMiddleware.RequireTeacherOrAdmin(), sectionHandler.CreateSection)

	sections := api.Group("/sections")
	sections.Put("/:id", authMiddleware.RequireTeacherOrAdmin(), sectionHandler.UpdateSection)
	sections.Delete("/:id", authMiddleware.RequireTeacherOrAdmin(), sectionHandler.DeleteSection)
	sections.Post("/:id/lessons", authMiddleware.RequireTeacherOrAdmin(), lessonHandler.CreateLesson)

	// Lessons
	lessons := api.Group("/lessons")
	lessons.Get("/:id", authMiddleware.Required(), lessonHandler.GetLesson)
	lessons.Put("/:id", authMiddleware.RequireTeacherOrAdmin(), lessonHandler.UpdateLesson)
	lessons.Delete("/:id", authMiddleware.RequireTeacherOrAdmin(), lessonHandler.DeleteLesson)
	lessons.Post("/:id/document", authMiddleware.RequireTeacherOrAdmin(), lessonHandler.UploadDocument)
	lessons.Post("/:id/complete", authMiddleware.Required(), lessonHandler.CompleteLesson)

	// Enrollment ledger
	courses.Post("/:id/enroll", authMiddleware.Required(), enrollmentHandler.Enroll)
	courses.Post("/:id/purchase", authMiddleware.Required(), enrollmentHandler.Purchase)
	courses.Get("/:id/students", authMiddleware.RequireTeacherOrAdmin(), enrollmentHandler.CourseStudents)
	courses.Delete("/:id/students/:studentId", authMiddleware.RequireTeacherOrAdmin(), enrollmentHandler.RemoveStudent)

	// Certificates
	courses.Post("/:id/certificate", authMiddleware.Required(), certificateHandler.Issue)
	courses.Get("/:id/certificate", authMiddleware.Required(), certificateHandler.GetForCourse)
	api.Get("/certificates/:code/verify", certificateHandler.Verify)

	// Reviews
	courses.Get("/:id/reviews", reviewHandler.ListForCourse)
	courses.Put("/:id/reviews", authMiddleware.Required(), reviewHandler.Upsert)
	courses.Get("/:id/reviews/me", authMiddleware.Required(), reviewHandler.GetMine)
	courses.Delete("/:id/reviews/me", authMiddleware.Required(), reviewHandler.Delete)

	// Student dashboard
	me := api.Group("/me", authMiddleware.Required())
	me.Get("/courses", enrollmentHandler.MyCourses)
	me.Get("/enrollments", enrollmentHandler.MyEnrollments)
	me.Get("/certificates", certificateHandler.ListMine)
	me.Get("/payments", paymentHandler.ListMine)
	me.Get("/payments/:reference", paymentHandler.GetByReference)

	// Cart
	cart := api.Group("/cart", authMiddleware.Required())
	cart.Get("/", cartHandler.List)
	cart.Post("/", cartHandler.Add)
	cart.Post("/checkout", cartHandler.Checkout)
	cart.Delete("/:courseId", cartHandler.Remove)

	// Announcements
	courses.Post("/:id/announcements", authMiddleware.RequireTeacherOrAdmin(), announcementHandler.Send)
	courses.Get("/:id/announcements", authMiddleware.Required(), announcementHandler.ListForCourse)

	announcements := api.Group("/announcements")
	announcements.Get("/sent", authMiddleware.RequireTeacher(), announcementHandler.ListSent)
	announcements.Post("/:id/read", authMiddleware.Required(), announcementHandler.MarkRead)
	announcements.Delete("/:id", authMiddleware.RequireTeacherOrAdmin(), announcementHandler.Delete)

	// Direct messages
	messages := api.Group("/messages", authMiddleware.Required())
	messages.Post("/", messageHandler.Send)
	messages.Get("/conversations", messageHandler.ListConversations)
	messages.Get("/unread-count", messageHandler.UnreadCount)
	messages.Get("/with/:userId", messageHandler.Conversation)
	messages.Post("/with/:userId/read", messageHandler.MarkConversationRead)

	// Notifications
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Post("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.Delete)

	// Teacher analytics
	analytics := api.Group("/analytics")
	analytics.Get("/me", authMiddleware.RequireTeacher(), analyticsHandler.TeacherStats)
	analytics.Get("/courses/:id", authMiddleware.Required(), analyticsHandler.CourseStats)

	// Admin surface. Every mutation leaves an audit row.
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Put("/users/:id", middleware.AdminAuditLog(db, "update", "user"), adminHandler.UpdateUser)
	admin.Delete("/users/:id", middleware.AdminAuditLog(db, "delete", "user"), adminHandler.DeleteUser)
	admin.Get("/analytics/dashboard", analyticsHandler.Dashboard)
	admin.Get("/analytics/enrollments", analyticsHandler.Enrollments)
	admin.Get("/analytics/revenue", analyticsHandler.Revenue)
	admin.Get("/analytics/top-courses", analyticsHandler.TopCourses)
	admin.Get("/audit-logs", adminHandler.ListAuditLogs)
	admin.Get("/cron-logs", adminHandler.ListCronJobLogs)
}
