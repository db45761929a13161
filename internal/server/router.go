package server

import (
	"time"

	"github.com/campusride/campusride-backend/internal/config"
	"github.com/campusride/campusride-backend/internal/handlers"
	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long lived objects the handlers are built from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Hub      *services.Hub
	Sessions *services.SessionStore
	Storage  *services.Storage
	Push     *services.PushSender
	Notifier *services.Notifier
	Bookings *services.BookingService
	Trips    *services.TripService
	Reviews  *services.ReviewService
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// NewRouter wires every route of the API.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	r.Use(cors.New(corsConfig(d.Config.CORSAllowedOrigins)))
	r.MaxMultipartMemory = services.MaxImageSize

	if dir := d.Storage.UploadDir(); dir != "" {
		r.Static("/uploads", dir)
	}

	r.GET("/health", handlers.Health(d.DB, d.Redis, d.Hub))

	var sessions middleware.SessionChecker
	if d.Sessions != nil {
		sessions = d.Sessions
	}
	auth := middleware.AuthMiddleware([]byte(d.Config.JWTSecret), sessions)
	driverOnly := middleware.RequireUserType(models.UserTypeDriver)
	passengerOnly := middleware.RequireUserType(models.UserTypePassenger)
	tokens := handlers.TokenConfig{Secret: []byte(d.Config.JWTSecret), TTL: d.Config.JWTTTL}

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", handlers.Register(d.DB))
			authGroup.POST("/login", handlers.Login(d.DB, d.Sessions, tokens))
			authGroup.POST("/logout", auth, handlers.Logout(d.Sessions))
		}

		api.GET("/ws", auth, handlers.WebSocketHandler(d.Hub))

		protected := api.Group("/")
		protected.Use(auth)
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(d.DB, d.Reviews))
				users.PUT("/profile", handlers.UpdateProfile(d.DB))
			}

			vehicles := protected.Group("/vehicles", driverOnly)
			{
				vehicles.POST("", handlers.CreateVehicle(d.DB))
				vehicles.GET("", handlers.ListVehicles(d.DB))
				vehicles.DELETE("/:id", handlers.DeleteVehicle(d.DB, d.Storage))
				vehicles.POST("/:id/photo", handlers.UploadVehiclePhoto(d.DB, d.Storage))
			}

			trips := protected.Group("/trips")
			{
				trips.GET("/search", handlers.SearchTrips(d.Trips))
				trips.GET("/driver", driverOnly, handlers.DriverTrips(d.Trips))
				trips.GET("/:id", handlers.GetTrip(d.DB, d.Trips, d.Reviews))
				trips.POST("", driverOnly, handlers.CreateTrip(d.Trips))
				trips.PUT("/:id", driverOnly, handlers.UpdateTrip(d.Trips))
				trips.POST("/:id/publish", driverOnly, handlers.TransitionTrip(d.Trips, models.TripStatusPublished))
				trips.POST("/:id/unpublish", driverOnly, handlers.TransitionTrip(d.Trips, models.TripStatusDraft))
				trips.POST("/:id/start", driverOnly, handlers.TransitionTrip(d.Trips, models.TripStatusInProgress))
				trips.POST("/:id/complete", driverOnly, handlers.TransitionTrip(d.Trips, models.TripStatusCompleted))
				trips.POST("/:id/cancel", driverOnly, handlers.TransitionTrip(d.Trips, models.TripStatusCanceled))
				trips.GET("/:id/bookings", driverOnly, handlers.TripBookings(d.Bookings))
				trips.GET("/:id/reviews", handlers.ListTripReviews(d.Reviews))
				trips.POST("/:id/reviews", passengerOnly, handlers.CreateReview(d.Reviews))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.POST("", passengerOnly, handlers.CreateBooking(d.Bookings))
				bookings.GET("/mine", passengerOnly, handlers.MyBookings(d.Bookings))
				bookings.GET("/:id", handlers.GetBooking(d.Bookings))
				bookings.POST("/:id/cancel", passengerOnly, handlers.BookingAction(d.Bookings.Cancel))
				bookings.POST("/:id/accept", driverOnly, handlers.BookingAction(d.Bookings.Accept))
				bookings.POST("/:id/decline", driverOnly, handlers.BookingAction(d.Bookings.Decline))
			}

			reviews := protected.Group("/reviews")
			{
				reviews.GET("/tags", handlers.ReviewTags())
				reviews.PUT("/:id", passengerOnly, handlers.UpdateReview(d.Reviews))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.ListNotifications(d.DB))
				notifications.POST("/:id/read", handlers.MarkNotificationRead(d.DB))
				notifications.POST("/read-all", handlers.MarkAllNotificationsRead(d.DB))
				notifications.POST("/register-token", handlers.RegisterFCMToken(d.DB, d.Push))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(d.DB, d.Push))
				notifications.GET("/preferences", handlers.GetNotificationPreferences(d.DB))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(d.DB, d.Push))
			}

			reports := protected.Group("/reports")
			{
				reports.POST("", handlers.CreateReport(d.DB, d.Notifier))
				reports.GET("/mine", handlers.MyReports(d.DB))
			}
		}
	}

	return r
}
