package routes

import (
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/config"
	"github.com/odeyarrenukaradhya/placement-support/internals/controllers"
	"github.com/odeyarrenukaradhya/placement-support/internals/exam"
	"github.com/odeyarrenukaradhya/placement-support/internals/middleware"
	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/otp"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	appName := config.GetEnvAsStr("APP_NAME", "Placement-Support")
	jwtSecret := config.GetEnv("JWT_SECRET_KEY")

	emailManager := utils.NewEmailManager(
		&utils.SMTPConfig{
			Host:     config.GetEnvAsStr("SMTP_HOST", "smtp.gmail.com"),
			Port:     config.GetEnvAsInt("SMTP_PORT", 587, true),
			User:     config.GetEnv("SMTP_USER"),
			Password: config.GetEnv("SMTP_APP_PASSWORD"),
			AppName:  appName,
		},
	)

	tokenManager := utils.NewTokenManager(
		jwtSecret,
		time.Duration(config.GetEnvAsInt("ACCESS_TOKEN_EXPIRATION_HOURS", 24, true))*time.Hour,
		time.Duration(config.GetEnvAsInt("RESET_TOKEN_EXPIRATION_MINUTES", 15, true))*time.Minute,
	)

	otpStore := otp.NewStore(db)
	coordinator := exam.NewCoordinator(db)

	authMiddleware := middleware.NewAuthMiddleware(db, tokenManager)
	authCtrl := controllers.NewAuthController(db, emailManager, tokenManager, otpStore)
	resetCtrl := controllers.NewResetController(db, emailManager, tokenManager, otpStore)
	examCtrl := controllers.NewExamController(db)
	attemptCtrl := controllers.NewAttemptController(db, coordinator)

	public := r.Group("/")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":    "ok",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/signup", authCtrl.Signup)
			auth.POST("/login", authCtrl.Login)
			auth.POST("/verify-otp", authCtrl.VerifyOTP)
			auth.POST("/request-password-reset", resetCtrl.RequestPasswordReset)
			auth.POST("/verify-reset-otp", resetCtrl.VerifyResetOTP)
			auth.POST("/reset-password", resetCtrl.ResetPassword)
		}
	}

	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth)
	{
		exams := protected.Group("/exams")
		{
			exams.GET("/", examCtrl.List)
			exams.GET("/:examId/questions", examCtrl.Questions)
			exams.POST("/", middleware.AuthorizeRoles(models.RoleTPO), examCtrl.Create)
			exams.POST("/:examId/questions", middleware.AuthorizeRoles(models.RoleTPO), examCtrl.AddQuestions)
			exams.GET("/:examId/integrity", middleware.AuthorizeRoles(models.RoleTPO, models.RoleAdmin), examCtrl.IntegrityLogs)
			exams.POST("/:examId/attempt", middleware.AuthorizeRoles(models.RoleStudent), attemptCtrl.Submit)
		}

		protected.POST("/attempts/start", middleware.AuthorizeRoles(models.RoleStudent), attemptCtrl.Start)
		protected.POST("/integrity/log", middleware.AuthorizeRoles(models.RoleStudent), attemptCtrl.LogIntegrity)
	}

	return r
}
