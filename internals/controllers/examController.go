package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/odeyarrenukaradhya/placement-support/internals/middleware"
	"github.com/odeyarrenukaradhya/placement-support/internals/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ExamController struct {
	DB *gorm.DB
}

func NewExamController(db *gorm.DB) *ExamController {
	return &ExamController{DB: db}
}

// collegeScoped narrows a query to the caller's college. Admin sees all.
func collegeScoped(q *gorm.DB, user models.User) *gorm.DB {
	if user.Role == models.RoleAdmin || user.CollegeID == nil {
		return q
	}
	return q.Where("college_id = ?", *user.CollegeID)
}

func (e *ExamController) examForCaller(c *gin.Context, user models.User) (*models.Exam, bool) {
	examID, err := strconv.ParseUint(c.Param("examId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exam id"})
		return nil, false
	}
	var examRow models.Exam
	if err := collegeScoped(e.DB, user).First(&examRow, uint(examID)).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized or Exam not found"})
		return nil, false
	}
	return &examRow, true
}

// List returns the caller's exams together with their latest attempt result.
func (e *ExamController) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var exams []models.Exam
	if err := collegeScoped(e.DB, user).Find(&exams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch exams"})
		return
	}

	var attempts []models.Attempt
	if err := e.DB.Where("student_id = ? AND submitted_at IS NOT NULL", user.ID).
		Order("created_at DESC").Find(&attempts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch exams"})
		return
	}
	latest := make(map[uint]models.Attempt, len(attempts))
	for _, attempt := range attempts {
		if _, seen := latest[attempt.ExamID]; !seen {
			latest[attempt.ExamID] = attempt
		}
	}

	response := make([]gin.H, 0, len(exams))
	for _, examRow := range exams {
		entry := gin.H{
			"id":           examRow.ID,
			"title":        examRow.Title,
			"duration":     examRow.DurationMinutes,
			"college_id":   examRow.CollegeID,
			"is_attempted": false,
		}
		if attempt, ok := latest[examRow.ID]; ok {
			entry["is_attempted"] = true
			entry["score"] = attempt.Score
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, response)
}

// Questions returns an exam's questions with the correct answers stripped.
func (e *ExamController) Questions(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	examRow, ok := e.examForCaller(c, user)
	if !ok {
		return
	}

	var questions []models.Question
	if err := e.DB.Where("exam_id = ?", examRow.ID).Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch questions"})
		return
	}

	response := make([]gin.H, 0, len(questions))
	for _, q := range questions {
		var options []string
		if err := json.Unmarshal([]byte(q.Options), &options); err != nil {
			options = nil
		}
		response = append(response, gin.H{
			"id":       q.ID,
			"question": q.Question,
			"options":  options,
		})
	}

	c.JSON(http.StatusOK, response)
}

// Create adds an exam for the placement officer's college.
func (e *ExamController) Create(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var body struct {
		Title    string `json:"title" binding:"required"`
		Duration int    `json:"duration" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	examRow := models.Exam{
		Title:           body.Title,
		DurationMinutes: body.Duration,
		CollegeID:       user.CollegeID,
		CreatedBy:       user.ID,
	}
	if err := e.DB.Create(&examRow).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create exam"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       examRow.ID,
		"title":    examRow.Title,
		"duration": examRow.DurationMinutes,
	})
}

// AddQuestions appends questions to an exam owned by the caller's college.
func (e *ExamController) AddQuestions(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	examRow, ok := e.examForCaller(c, user)
	if !ok {
		return
	}

	var body struct {
		Questions []struct {
			Question      string   `json:"question" binding:"required"`
			Options       []string `json:"options" binding:"required"`
			CorrectAnswer string   `json:"correct_answer" binding:"required"`
		} `json:"questions" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	rows := make([]models.Question, 0, len(body.Questions))
	for _, q := range body.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
			return
		}
		rows = append(rows, models.Question{
			ExamID:        examRow.ID,
			Question:      q.Question,
			Options:       string(options),
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	if err := e.DB.Create(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add questions"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Questions added"})
}

// IntegrityLogs returns an exam's violation records, newest first, joined
// with the offending student.
func (e *ExamController) IntegrityLogs(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	examRow, ok := e.examForCaller(c, user)
	if !ok {
		return
	}

	type logEntry struct {
		ID           uint   `json:"id"`
		AttemptID    uint   `json:"attempt_id"`
		Type         string `json:"type"`
		Metadata     string `json:"metadata"`
		CreatedAt    string `json:"created_at"`
		StudentID    uint   `json:"student_id"`
		StudentName  string `json:"student_name"`
		StudentEmail string `json:"student_email"`
	}

	var logs []logEntry
	err := e.DB.Table("integrity_logs").
		Select(`integrity_logs.id, integrity_logs.attempt_id, integrity_logs.type,
			integrity_logs.metadata, integrity_logs.created_at,
			attempts.student_id, users.name AS student_name, users.email AS student_email`).
		Joins("JOIN attempts ON integrity_logs.attempt_id = attempts.id").
		Joins("JOIN users ON attempts.student_id = users.id").
		Where("attempts.exam_id = ?", examRow.ID).
		Order("integrity_logs.created_at DESC").
		Scan(&logs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch integrity logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}
