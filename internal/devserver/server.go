// Package devserver is a self-contained backend for local development and
// end-to-end testing of the sync client. It speaks the same REST API as the
// production backend but keeps everything in memory, so a scenario can be
// wiped by restarting the process.
package devserver

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"gymsync/internal/storage"
)

const defaultTokenTTL = 24 * time.Hour

// Server bundles the in-memory store, the object storage backend and the
// signing secret behind a gin router.
type Server struct {
	store    *Store
	files    storage.FileStorage
	secret   string
	tokenTTL time.Duration
	logger   *log.Logger
}

// New creates a devserver. files may be an S3-compatible backend or the
// built-in LocalStorage; secret signs the session tokens.
func New(store *Store, files storage.FileStorage, secret string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[devserver] ", log.LstdFlags)
	}
	return &Server{
		store:    store,
		files:    files,
		secret:   secret,
		tokenTTL: defaultTokenTTL,
		logger:   logger,
	}
}

// Router assembles the gin engine with all API routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Local object storage endpoints, used when LocalStorage stands in for
	// S3. "Presigned" URLs point here; no auth, dev only.
	router.PUT("/storage/*key", s.putObject)
	router.GET("/storage/*key", s.getObject)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", s.register)
			authGroup.POST("/login", s.login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware(s.secret))
	{
		programGroup := protected.Group("/programs")
		{
			programGroup.POST("", s.createProgram)
			programGroup.GET("", s.listPrograms)
			programGroup.PUT("/:id", s.updateProgram)
			programGroup.DELETE("/:id", s.deleteProgram)
			programGroup.POST("/:id/workouts", s.createWorkout)
			programGroup.GET("/:id/workouts", s.listWorkouts)
		}

		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.PUT("/:id", s.updateWorkout)
			workoutGroup.DELETE("/:id", s.deleteWorkout)
			workoutGroup.POST("/:id/exercises", s.createExercise)
			workoutGroup.GET("/:id/exercises", s.listExercises)
		}

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.PUT("/:id", s.updateExercise)
			exerciseGroup.DELETE("/:id", s.deleteExercise)
		}

		protected.POST("/uploads/presign", s.presignUpload)
	}

	return router
}
