package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course owns an ordered set of chapters and an ordered set of quizzes.
// Both sets share one position space when merged into a timeline.
type Course struct {
	CourseID  string
	OwnerID   string
	Title     string
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Chapter is a video or document lesson within a course.
type Chapter struct {
	ChapterID   string
	CourseID    string
	Title       string
	Description string
	MediaRef    string
	Position    int
	IsFree      bool
	IsPublished bool
	CreatedAt   time.Time
}

// Quiz is either bound to a course (CourseID != "") or standalone.
type Quiz struct {
	QuizID       string
	CourseID     string
	Title        string
	Position     int
	TimerMinutes *int
	MaxAttempts  int
	IsPublished  bool
	CreatedAt    time.Time
	Questions    []Question
}

// Standalone reports whether the quiz has no owning course.
func (q Quiz) Standalone() bool { return q.CourseID == "" }

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer:
		return true
	}
	return false
}

// Question is one item of a quiz. CorrectAnswer is reference data only and
// never takes part in accepting or rejecting a submission.
type Question struct {
	QuestionID    string
	QuizID        string
	Position      int
	Type          QuestionType
	Text          string
	Options       []string
	CorrectAnswer *string
	Points        decimal.Decimal
}

type ItemKind string

const (
	KindChapter ItemKind = "chapter"
	KindQuiz    ItemKind = "quiz"
)

// ContentItem is one slot of a course timeline. It is derived at read time
// and never stored.
type ContentItem struct {
	Kind      ItemKind
	ItemID    string
	Title     string
	Position  int
	IsFree    bool
	CreatedAt time.Time
}

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Viewer is the identity on whose behalf an operation runs. The zero value
// is an anonymous viewer.
type Viewer struct {
	UserID string
	Role   Role
}

func (v Viewer) Anonymous() bool { return v.UserID == "" }

// Progress is the completion state of a chapter for a user.
type Progress struct {
	UserID      string
	ChapterID   string
	CourseID    string
	IsCompleted bool
	CompletedAt time.Time
}

// CourseProgress aggregates chapter completion within a course.
type CourseProgress struct {
	UserID            string
	CourseID          string
	CompletedChapters int
	TotalChapters     int
	Percentage        decimal.Decimal
}

// Answer is the answer given to one question. An empty Value means the
// question was left unanswered.
type Answer struct {
	QuestionID string
	Value      string
}

// Submission is an immutable record of one quiz attempt.
type Submission struct {
	SubmissionID  string
	QuizID        string
	UserID        string
	AttemptNumber int
	SubmittedAt   time.Time
	Answers       []Answer
}
