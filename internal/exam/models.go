package exam

import "time"

type Exam struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date"` // YYYY-MM-DD
	TotalMarks      int    `json:"total_marks"`
	DurationMinutes int    `json:"duration_minutes"`
	CreatedBy       string `json:"created_by,omitempty"` // empty when the creator is gone
	CreatedAt       int64  `json:"created_at,omitempty"`
}

type Question struct {
	ID            string `json:"id"`
	ExamID        string `json:"exam_id"`
	Text          string `json:"question_text"`
	Option1       string `json:"option1"`
	Option2       string `json:"option2"`
	Option3       string `json:"option3"`
	Option4       string `json:"option4"`
	CorrectOption int    `json:"correct_option,omitempty"` // stripped when served to students
	Marks         int    `json:"marks"`
}

type Attempt struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id"`
	ExamID      string  `json:"exam_id"`
	SubmittedAt int64   `json:"submitted_at"`
	Score       float64 `json:"score"`
}

type Answer struct {
	ID             string `json:"id"`
	AttemptID      string `json:"attempt_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
}

// AnswerDetail pairs an answer with its question for review screens.
type AnswerDetail struct {
	Answer
	Question Question `json:"question"`
}

type ListOpts struct {
	ViewerID   string
	ViewerRole string // "student" | "teacher" | "admin"; teachers see only their own exams
	Limit      int
	Offset     int
}

// SubmissionFilter narrows a teacher's submission list. Both bounds are
// inclusive and compose with AND when both are set.
type SubmissionFilter struct {
	ScoreMin *float64
	DateFrom *time.Time
}
