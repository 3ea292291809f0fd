package models

import "gorm.io/gorm"

type Exam struct {
	gorm.Model
	Title string `gorm:"column:title"`
	// DurationMinutes is the fixed attempt window. The server-stamped attempt
	// start time plus this duration is the authoritative deadline.
	DurationMinutes int   `gorm:"column:duration_minutes"`
	CollegeID       *uint `gorm:"column:college_id;index"`
	CreatedBy       uint  `gorm:"column:created_by"`
}

type Question struct {
	gorm.Model
	ExamID        uint   `gorm:"column:exam_id;index"`
	Question      string `gorm:"column:question"`
	Options       string `gorm:"column:options"` // JSON array of option strings
	CorrectAnswer string `gorm:"column:correct_answer"`
}
