package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/exam"
	"github.com/odeyarrenukaradhya/placement-support/internals/middleware"
	"github.com/odeyarrenukaradhya/placement-support/internals/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AttemptController struct {
	DB          *gorm.DB
	Coordinator *exam.Coordinator
}

func NewAttemptController(db *gorm.DB, coordinator *exam.Coordinator) *AttemptController {
	return &AttemptController{
		DB:          db,
		Coordinator: coordinator,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint")
}

// Start opens (or resumes) the student's attempt for an exam. The start time
// is server-assigned and authoritative; a reload never forks a second open
// attempt, it gets the original row back.
func (a *AttemptController) Start(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var body struct {
		ExamID uint `json:"exam_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exam_id required"})
		return
	}

	var examRow models.Exam
	if err := a.DB.First(&examRow, body.ExamID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
		return
	}
	if examRow.CollegeID != nil && user.CollegeID != nil && *examRow.CollegeID != *user.CollegeID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	openAttempt := func() *gorm.DB {
		return a.DB.Where("exam_id = ? AND student_id = ? AND submitted_at IS NULL", body.ExamID, user.ID)
	}

	var attempt models.Attempt
	err := openAttempt().First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		attempt = models.Attempt{
			ExamID:    body.ExamID,
			StudentID: user.ID,
			StartedAt: time.Now(),
		}
		if createErr := a.DB.Create(&attempt).Error; createErr != nil {
			// A racing start won the insert; the partial unique index on open
			// attempts rejected ours. Hand back the winner's row.
			if !isUniqueViolation(createErr) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start attempt"})
				return
			}
			if err := openAttempt().First(&attempt).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start attempt"})
				return
			}
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start attempt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt_id": attempt.ID,
		"started_at": attempt.StartedAt,
	})
}

// Submit closes an attempt through the submission coordinator. A duplicate
// submit from a racing timer or a stale tab is absorbed as a success, never
// surfaced as an error.
func (a *AttemptController) Submit(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	examID, err := strconv.ParseUint(c.Param("examId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exam id"})
		return
	}

	var body struct {
		AttemptID         uint              `json:"attempt_id" binding:"required"`
		Answers           map[string]string `json:"answers"`
		IsAuto            bool              `json:"is_auto"`
		IsTermination     bool              `json:"is_termination"`
		TerminationReason string            `json:"termination_reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attempt_id required"})
		return
	}

	var attempt models.Attempt
	if err := a.DB.Where("id = ? AND exam_id = ?", body.AttemptID, uint(examID)).First(&attempt).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attempt already submitted or invalid"})
		return
	}

	answers := make(map[uint]string, len(body.Answers))
	for key, value := range body.Answers {
		questionID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		answers[uint(questionID)] = value
	}

	cause := exam.CauseManual
	switch {
	case body.IsTermination:
		cause = exam.CauseTermination
	case body.IsAuto:
		cause = exam.CauseTimeout
	}

	result, err := a.Coordinator.Submit(body.AttemptID, user.ID, answers, cause, body.TerminationReason)
	if err != nil {
		if errors.Is(err, exam.ErrAttemptNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Attempt already submitted or invalid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit attempt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt_id":        result.AttemptID,
		"score":             result.Score,
		"submitted_at":      result.SubmittedAt,
		"already_submitted": result.AlreadySubmitted,
	})
}

// LogIntegrity appends a violation record for the student's own attempt.
// The client treats this as fire-and-forget; the rows are append-only.
func (a *AttemptController) LogIntegrity(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var body struct {
		AttemptID uint            `json:"attempt_id" binding:"required"`
		Type      string          `json:"type" binding:"required"`
		Metadata  json.RawMessage `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	var attempt models.Attempt
	if err := a.DB.Where("id = ? AND student_id = ?", body.AttemptID, user.ID).First(&attempt).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	logRow := models.IntegrityLog{
		AttemptID: body.AttemptID,
		Type:      body.Type,
		Metadata:  string(body.Metadata),
	}
	if err := a.DB.Create(&logRow).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Logged"})
}
