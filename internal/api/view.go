package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/attempt"
	"github.com/ahmednader515/alkian/internal/course"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/progress"
	"github.com/ahmednader515/alkian/internal/result"
)

type (
	Decision struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
		Action  string `json:"action,omitempty"`
	}

	Course struct {
		CourseID string          `json:"course_id"`
		OwnerID  string          `json:"owner_id"`
		Title    string          `json:"title"`
		Price    decimal.Decimal `json:"price"`
	}

	TimelineItem struct {
		Kind      string   `json:"kind"`
		ItemID    string   `json:"item_id"`
		Title     string   `json:"title"`
		Position  int      `json:"position"`
		IsFree    bool     `json:"is_free"`
		Access    Decision `json:"access"`
		Completed bool     `json:"completed"`
	}

	CourseProgress struct {
		CourseID          string          `json:"course_id"`
		CompletedChapters int             `json:"completed_chapters"`
		TotalChapters     int             `json:"total_chapters"`
		Percentage        decimal.Decimal `json:"percentage"`
	}

	Timeline struct {
		Course   Course          `json:"course"`
		Items    []TimelineItem  `json:"items"`
		Progress *CourseProgress `json:"progress,omitempty"`
	}

	Chapter struct {
		ChapterID   string `json:"chapter_id"`
		CourseID    string `json:"course_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		MediaRef    string `json:"media_ref"`
		Position    int    `json:"position"`
		IsFree      bool   `json:"is_free"`
	}

	ChapterView struct {
		Chapter   Chapter       `json:"chapter"`
		Course    Course        `json:"course"`
		Access    Decision      `json:"access"`
		Completed bool          `json:"completed"`
		Previous  *TimelineItem `json:"previous"`
		Next      *TimelineItem `json:"next"`
	}

	Navigation struct {
		Current  TimelineItem  `json:"current"`
		Previous *TimelineItem `json:"previous"`
		Next     *TimelineItem `json:"next"`
	}

	Progress struct {
		ChapterID   string     `json:"chapter_id"`
		CourseID    string     `json:"course_id"`
		IsCompleted bool       `json:"is_completed"`
		CompletedAt *time.Time `json:"completed_at"`
	}

	ProgressResponse struct {
		Progress Progress       `json:"progress"`
		Course   CourseProgress `json:"course"`
		Changed  bool           `json:"changed"`
	}

	Eligibility struct {
		QuizID       string `json:"quiz_id"`
		AttemptsUsed int    `json:"attempts_used"`
		MaxAttempts  int    `json:"max_attempts"`
		Remaining    int    `json:"remaining"`
		CanStart     bool   `json:"can_start"`
	}

	Question struct {
		QuestionID    string          `json:"question_id"`
		Position      int             `json:"position"`
		Type          string          `json:"type"`
		Text          string          `json:"text"`
		Options       []string        `json:"options"`
		CorrectAnswer *string         `json:"correct_answer,omitempty"`
		Points        decimal.Decimal `json:"points"`
	}

	StartedAttempt struct {
		QuizID        string     `json:"quiz_id"`
		Title         string     `json:"title"`
		AttemptNumber int        `json:"attempt_number"`
		TimerSeconds  *int       `json:"timer_seconds"`
		StartedAt     time.Time  `json:"started_at"`
		Questions     []Question `json:"questions"`
	}

	Answer struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	}

	SubmitBody struct {
		Answers []Answer `json:"answers"`
	}

	Submission struct {
		SubmissionID  string    `json:"submission_id"`
		QuizID        string    `json:"quiz_id"`
		UserID        string    `json:"user_id"`
		AttemptNumber int       `json:"attempt_number"`
		SubmittedAt   time.Time `json:"submitted_at"`
		Answers       []Answer  `json:"answers"`
	}

	ResultEntry struct {
		Question Question `json:"question"`
		Answer   string   `json:"answer"`
		Answered bool     `json:"answered"`
	}

	Result struct {
		Submission  Submission    `json:"submission"`
		QuizTitle   string        `json:"quiz_title"`
		MaxAttempts int           `json:"max_attempts"`
		Entries     []ResultEntry `json:"entries"`
	}
)

func toDecision(d access.Decision) Decision {
	return Decision{Allowed: d.Allowed, Reason: string(d.Reason), Action: string(d.Action)}
}

func toCourse(c domain.Course) Course {
	return Course{CourseID: c.CourseID, OwnerID: c.OwnerID, Title: c.Title, Price: c.Price}
}

func toTimelineItem(it course.Item) TimelineItem {
	return TimelineItem{
		Kind:      string(it.Kind),
		ItemID:    it.ItemID,
		Title:     it.Title,
		Position:  it.Position,
		IsFree:    it.IsFree,
		Access:    toDecision(it.Access),
		Completed: it.Completed,
	}
}

func toTimelineItemPtr(it *course.Item) *TimelineItem {
	if it == nil {
		return nil
	}
	v := toTimelineItem(*it)
	return &v
}

func toCourseProgress(cp domain.CourseProgress) CourseProgress {
	return CourseProgress{
		CourseID:          cp.CourseID,
		CompletedChapters: cp.CompletedChapters,
		TotalChapters:     cp.TotalChapters,
		Percentage:        cp.Percentage,
	}
}

func toTimeline(tl *course.Timeline) Timeline {
	resp := Timeline{
		Course: toCourse(tl.Course),
		Items:  make([]TimelineItem, 0, len(tl.Items)),
	}
	for _, it := range tl.Items {
		resp.Items = append(resp.Items, toTimelineItem(it))
	}
	if tl.Progress != nil {
		cp := toCourseProgress(*tl.Progress)
		resp.Progress = &cp
	}
	return resp
}

func toChapterView(v *course.ChapterView) ChapterView {
	return ChapterView{
		Chapter: Chapter{
			ChapterID:   v.Chapter.ChapterID,
			CourseID:    v.Chapter.CourseID,
			Title:       v.Chapter.Title,
			Description: v.Chapter.Description,
			MediaRef:    v.Chapter.MediaRef,
			Position:    v.Chapter.Position,
			IsFree:      v.Chapter.IsFree,
		},
		Course:    toCourse(v.Course),
		Access:    toDecision(v.Access),
		Completed: v.Completed,
		Previous:  toTimelineItemPtr(v.Previous),
		Next:      toTimelineItemPtr(v.Next),
	}
}

func toProgressResponse(r *progress.MarkResponse) ProgressResponse {
	p := Progress{
		ChapterID:   r.Progress.ChapterID,
		CourseID:    r.Progress.CourseID,
		IsCompleted: r.Progress.IsCompleted,
	}
	if r.Progress.IsCompleted {
		at := r.Progress.CompletedAt
		p.CompletedAt = &at
	}

	return ProgressResponse{
		Progress: p,
		Course:   toCourseProgress(r.Course),
		Changed:  r.Changed,
	}
}

func toEligibility(e *attempt.Eligibility) Eligibility {
	return Eligibility{
		QuizID:       e.QuizID,
		AttemptsUsed: e.AttemptsUsed,
		MaxAttempts:  e.MaxAttempts,
		Remaining:    e.Remaining,
		CanStart:     e.CanStart,
	}
}

func toQuestion(q domain.Question) Question {
	return Question{
		QuestionID:    q.QuestionID,
		Position:      q.Position,
		Type:          string(q.Type),
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
	}
}

func toStartedAttempt(r *attempt.StartResponse) StartedAttempt {
	resp := StartedAttempt{
		QuizID:        r.Quiz.QuizID,
		Title:         r.Quiz.Title,
		AttemptNumber: r.AttemptNumber,
		TimerSeconds:  r.TimerSeconds,
		StartedAt:     r.StartedAt,
		Questions:     make([]Question, 0, len(r.Quiz.Questions)),
	}
	for _, q := range r.Quiz.Questions {
		resp.Questions = append(resp.Questions, toQuestion(q))
	}
	return resp
}

func toSubmission(s domain.Submission) Submission {
	resp := Submission{
		SubmissionID:  s.SubmissionID,
		QuizID:        s.QuizID,
		UserID:        s.UserID,
		AttemptNumber: s.AttemptNumber,
		SubmittedAt:   s.SubmittedAt,
		Answers:       make([]Answer, 0, len(s.Answers)),
	}
	for _, a := range s.Answers {
		resp.Answers = append(resp.Answers, Answer{QuestionID: a.QuestionID, Value: a.Value})
	}
	return resp
}

func toResult(s *result.Sheet) Result {
	resp := Result{
		Submission:  toSubmission(s.Submission),
		QuizTitle:   s.QuizTitle,
		MaxAttempts: s.MaxAttempts,
		Entries:     make([]ResultEntry, 0, len(s.Entries)),
	}
	for _, e := range s.Entries {
		resp.Entries = append(resp.Entries, ResultEntry{
			Question: toQuestion(e.Question),
			Answer:   e.Answer,
			Answered: e.Answered,
		})
	}
	return resp
}
