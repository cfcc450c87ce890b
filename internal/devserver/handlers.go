package devserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gymsync/internal/remote"
	"gymsync/internal/storage"
)

// --- Auth ---

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not process registration")
		return
	}
	user, err := s.store.CreateUser(req.Name, req.Email, string(hash))
	if errors.Is(err, ErrEmailTaken) {
		abortWithError(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during registration")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := s.store.UserByEmail(req.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		abortWithError(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	now := time.Now()
	claims := apiClaims{
		ProfileID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not process login")
		return
	}
	c.JSON(http.StatusOK, remote.LoginResponse{Token: token, UserID: user.ID})
}

// --- Programs ---

func (s *Server) createProgram(c *gin.Context) {
	profileID, err := profileIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	var payload remote.ProgramPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	// The token decides ownership, not the body.
	payload.ProfileID = profileID
	c.JSON(http.StatusCreated, s.store.CreateProgram(payload))
}

func (s *Server) updateProgram(c *gin.Context) {
	var payload remote.ProgramPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	updated, err := s.store.UpdateProgram(c.Param("id"), payload)
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteProgram(c *gin.Context) {
	if err := s.store.DeleteProgram(c.Param("id")); errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listPrograms(c *gin.Context) {
	profileID, err := profileIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	// The profileId query parameter is accepted but the token wins.
	c.JSON(http.StatusOK, s.store.ListPrograms(profileID))
}

// --- Workouts ---

func (s *Server) createWorkout(c *gin.Context) {
	profileID, err := profileIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	var payload remote.WorkoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	payload.ProfileID = profileID
	created, err := s.store.CreateWorkout(c.Param("id"), payload)
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateWorkout(c *gin.Context) {
	var payload remote.WorkoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	updated, err := s.store.UpdateWorkout(c.Param("id"), payload)
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteWorkout(c *gin.Context) {
	if err := s.store.DeleteWorkout(c.Param("id")); errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWorkouts(c *gin.Context) {
	workouts, err := s.store.ListWorkouts(c.Param("id"))
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, workouts)
}

// --- Exercises ---

func (s *Server) createExercise(c *gin.Context) {
	profileID, err := profileIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	var payload remote.ExercisePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	payload.ProfileID = profileID
	created, err := s.store.CreateExercise(c.Param("id"), payload)
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateExercise(c *gin.Context) {
	var payload remote.ExercisePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	updated, err := s.store.UpdateExercise(c.Param("id"), payload)
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteExercise(c *gin.Context) {
	if err := s.store.DeleteExercise(c.Param("id")); errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listExercises(c *gin.Context) {
	exercises, err := s.store.ListExercises(c.Param("id"))
	if errors.Is(err, ErrRecordNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, exercises)
}

// --- Media ---

func (s *Server) presignUpload(c *gin.Context) {
	profileID, err := profileIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	var req remote.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	// A fresh UUID in the key keeps repeated uploads of the same filename
	// from overwriting each other.
	ext := path.Ext(req.FileName)
	objectKey := fmt.Sprintf("media/%s/%s/%s%s", profileID, req.WorkoutID, uuid.NewString(), ext)

	// S3 rejects a zero expiry as already expired, so sign with a real TTL.
	uploadURL, err := s.files.GeneratePresignedUploadURL(c.Request.Context(), objectKey, req.ContentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.logger.Printf("WARNING: presigning %s failed: %v", objectKey, err)
		abortWithError(c, http.StatusInternalServerError, "Could not presign upload")
		return
	}
	c.JSON(http.StatusOK, remote.PresignResponse{URL: uploadURL, ObjectKey: objectKey})
}

// putObject accepts a direct upload when LocalStorage stands in for S3.
func (s *Server) putObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "could not read body")
		return
	}
	s.store.PutObject(key, data)
	c.Status(http.StatusOK)
}

func (s *Server) getObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	data, ok := s.store.GetObject(key)
	if !ok {
		abortWithError(c, http.StatusNotFound, "object not found")
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
