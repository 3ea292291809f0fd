package exam

import (
	"errors"
	"time"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"gorm.io/gorm"
)

// Cause records what triggered a submission. The first writer's cause is the
// one that persists.
type Cause string

const (
	CauseManual      Cause = "manual"
	CauseTimeout     Cause = "timeout"
	CauseTermination Cause = "termination"
)

var ErrAttemptNotFound = errors.New("attempt not found")

// SubmissionResult reports the persisted outcome of a submission. When a
// racing submit already closed the attempt, AlreadySubmitted is true and the
// fields carry the first writer's values.
type SubmissionResult struct {
	AttemptID         uint
	Score             int
	SubmittedAt       time.Time
	Cause             Cause
	TerminationReason string
	AlreadySubmitted  bool
}

// Coordinator guarantees at-most-once scoring per attempt. Atomicity is
// pushed to the database: the closing write is conditional on
// submitted_at IS NULL, so any race between a manual submit, a timeout
// auto-submit and a termination trigger has a deterministic single winner.
type Coordinator struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{DB: db, Now: time.Now}
}

// Submit scores the supplied answers and closes the attempt. Unanswered
// questions count as incorrect, never as an error. A duplicate call is a
// harmless no-op reporting the previously persisted result.
func (c *Coordinator) Submit(attemptID, studentID uint, answers map[uint]string, cause Cause, terminationReason string) (*SubmissionResult, error) {
	var attempt models.Attempt
	err := utils.WithRetry(func() error {
		return c.DB.Where("id = ? AND student_id = ?", attemptID, studentID).First(&attempt).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	var questions []models.Question
	if err := utils.WithRetry(func() error {
		return c.DB.Where("exam_id = ?", attempt.ExamID).Find(&questions).Error
	}); err != nil {
		return nil, err
	}

	score := 0
	for _, q := range questions {
		if answers[q.ID] == q.CorrectAnswer {
			score++
		}
	}

	if cause != CauseTermination {
		terminationReason = ""
	}

	submittedAt := c.Now()
	var res *gorm.DB
	if err := utils.WithRetry(func() error {
		res = c.DB.Model(&models.Attempt{}).
			Where("id = ? AND student_id = ? AND submitted_at IS NULL", attemptID, studentID).
			Updates(map[string]interface{}{
				"score":              score,
				"submitted_at":       submittedAt,
				"submit_cause":       string(cause),
				"termination_reason": terminationReason,
			})
		return res.Error
	}); err != nil {
		return nil, err
	}

	if res.RowsAffected == 0 {
		// A racing submit won. Report the persisted row, not an error.
		if err := utils.WithRetry(func() error {
			return c.DB.First(&attempt, attemptID).Error
		}); err != nil {
			return nil, err
		}
		result := &SubmissionResult{
			AttemptID:         attempt.ID,
			Score:             attempt.Score,
			Cause:             Cause(attempt.SubmitCause),
			TerminationReason: attempt.TerminationReason,
			AlreadySubmitted:  true,
		}
		if attempt.SubmittedAt != nil {
			result.SubmittedAt = *attempt.SubmittedAt
		}
		return result, nil
	}

	return &SubmissionResult{
		AttemptID:         attemptID,
		Score:             score,
		SubmittedAt:       submittedAt,
		Cause:             cause,
		TerminationReason: terminationReason,
	}, nil
}
