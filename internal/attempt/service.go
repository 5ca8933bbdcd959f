package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/event"
)

type Config struct {
	DB       *sql.DB
	EventBus *event.Bus
	Catalog  *catalog.Service
	Guard    *access.Guard
	Now      func() time.Time
}

// Service runs quiz attempts: eligibility, start, and submission of the
// immutable attempt record. The attempt in progress lives with the client.
type Service struct {
	db      *sql.DB
	eb      *event.Bus
	catalog *catalog.Service
	guard   *access.Guard
	now     func() time.Time
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		db:      c.DB,
		eb:      c.EventBus,
		catalog: c.Catalog,
		guard:   c.Guard,
		now:     now,
	}
}

type CanStartRequest struct {
	Viewer domain.Viewer
	QuizID string
}

type Eligibility struct {
	QuizID       string
	AttemptsUsed int
	MaxAttempts  int
	Remaining    int
	CanStart     bool
}

// CanStart counts the viewer's submissions afresh on every call.
func (s *Service) CanStart(ctx context.Context, req CanStartRequest) (*Eligibility, error) {
	q, err := s.loadQuiz(ctx, req.Viewer, req.QuizID)
	if err != nil {
		return nil, err
	}

	return s.eligibility(ctx, req.Viewer.UserID, q)
}

func (s *Service) eligibility(ctx context.Context, userID string, q *domain.Quiz) (*Eligibility, error) {
	used, err := s.countSubmissions(ctx, userID, q.QuizID)
	if err != nil {
		return nil, err
	}

	return &Eligibility{
		QuizID:       q.QuizID,
		AttemptsUsed: used,
		MaxAttempts:  q.MaxAttempts,
		Remaining:    max(q.MaxAttempts-used, 0),
		CanStart:     used < q.MaxAttempts,
	}, nil
}

type StartRequest struct {
	Viewer domain.Viewer
	QuizID string
}

type StartResponse struct {
	// Quiz has its questions without correct answers.
	Quiz          domain.Quiz
	AttemptNumber int
	// TimerSeconds is nil when the quiz has no time limit. The timer is
	// advisory: the client submits when it runs out.
	TimerSeconds *int
	StartedAt    time.Time
}

// Start issues the questions of a new attempt.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	q, err := s.loadQuiz(ctx, req.Viewer, req.QuizID)
	if err != nil {
		return nil, err
	}

	el, err := s.eligibility(ctx, req.Viewer.UserID, q)
	if err != nil {
		return nil, err
	}
	if !el.CanStart {
		return nil, errors.AttemptsExhausted("no attempts left: quiz=%s used=%d max=%d", q.QuizID, el.AttemptsUsed, el.MaxAttempts)
	}

	resp := &StartResponse{
		Quiz:          *q,
		AttemptNumber: el.AttemptsUsed + 1,
		StartedAt:     s.now().UTC(),
	}

	resp.Quiz.Questions = make([]domain.Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.CorrectAnswer = nil
		resp.Quiz.Questions[i] = qq
	}

	if q.TimerMinutes != nil {
		secs := *q.TimerMinutes * 60
		resp.TimerSeconds = &secs
	}

	return resp, nil
}

type SubmitRequest struct {
	Viewer  domain.Viewer
	QuizID  string
	Answers []domain.Answer
}

// Submit validates the answers and stores them as one immutable attempt.
// Manual submission and timer expiry both end here; late arrivals are
// accepted. The attempt ceiling is checked in the same statement that
// inserts the record.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Submission, error) {
	q, err := s.loadQuiz(ctx, req.Viewer, req.QuizID)
	if err != nil {
		return nil, err
	}

	answers, err := normalizeAnswers(q, req.Answers)
	if err != nil {
		s.reject(ctx, req, err)
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate submission ID: %w", err)
	}

	sub := &domain.Submission{
		SubmissionID: id.String(),
		QuizID:       q.QuizID,
		UserID:       req.Viewer.UserID,
		SubmittedAt:  s.now().UTC().Truncate(time.Millisecond),
		Answers:      answers,
	}

	if err := s.insertSubmission(ctx, sub, q.MaxAttempts); err != nil {
		s.reject(ctx, req, err)
		return nil, err
	}

	e := domain.EventAttemptSubmitted{
		Submission:  *sub,
		MaxAttempts: q.MaxAttempts,
		Standalone:  q.Standalone(),
	}
	if !q.Standalone() {
		c, err := s.catalog.GetContent(ctx, catalog.GetContentRequest{CourseID: q.CourseID})
		if err != nil {
			slog.ErrorContext(ctx, "attempt: resolve course owner failed", "quiz_id", q.QuizID, "course_id", q.CourseID, "error", err)
		} else {
			e.CourseOwnerID = c.Course.OwnerID
		}
	}
	s.eb.Publish(ctx, e)

	return sub, nil
}

type storedAnswer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

func (s *Service) insertSubmission(ctx context.Context, sub *domain.Submission, maxAttempts int) error {
	stored := make([]storedAnswer, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		stored = append(stored, storedAnswer{QuestionID: a.QuestionID, Value: a.Value})
	}

	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	// The count and the insert are one statement; the unique attempt number
	// rejects whichever of two racing inserts commits second. A rejected
	// insert is retried since the winner may have left attempts over. Every
	// conflict means another attempt was stored, so maxAttempts tries are
	// enough to reach either a free number or the ceiling.
	const stmt = `
INSERT INTO quiz_submissions (submission_id, quiz_id, user_id, attempt_number, submitted_at, answers_json)
SELECT CAST($1 AS TEXT), CAST($2 AS TEXT), CAST($3 AS TEXT), n.used + 1, CAST($4 AS BIGINT), CAST($5 AS TEXT)
FROM (SELECT COUNT(*) AS used FROM quiz_submissions WHERE quiz_id = $6 AND user_id = $7) n
WHERE n.used < $8;`

	var res sql.Result
	for try := 1; ; try++ {
		res, err = s.db.ExecContext(ctx, stmt,
			sub.SubmissionID, sub.QuizID, sub.UserID, db.Millis(sub.SubmittedAt), string(b),
			sub.QuizID, sub.UserID, maxAttempts,
		)
		if !db.IsUniqueViolation(err) {
			break
		}
		if try >= maxAttempts {
			return errors.New(errors.CodeAborted,
				errors.WithReason(errors.ReasonAttemptConflict),
				errors.WithMessagef("attempt number taken, retry: quiz=%s", sub.QuizID),
				errors.WithCause(err))
		}
		slog.DebugContext(ctx, "attempt: attempt number taken, retrying", "quiz_id", sub.QuizID, "user_id", sub.UserID, "try", try)
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errors.AttemptsExhausted("no attempts left: quiz=%s max=%d", sub.QuizID, maxAttempts)
	}

	const numStmt = `SELECT attempt_number FROM quiz_submissions WHERE submission_id = $1`
	if err := s.db.QueryRowContext(ctx, numStmt, sub.SubmissionID).Scan(&sub.AttemptNumber); err != nil {
		return fmt.Errorf("read attempt number: %w", err)
	}

	return nil
}

func (s *Service) countSubmissions(ctx context.Context, userID, quizID string) (int, error) {
	const stmt = `SELECT COUNT(*) FROM quiz_submissions WHERE quiz_id = $1 AND user_id = $2`

	var n int
	if err := s.db.QueryRowContext(ctx, stmt, quizID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// loadQuiz resolves a published quiz and applies the access gate. Attempts
// are counted per user, so anonymous viewers are rejected even for
// standalone quizzes.
func (s *Service) loadQuiz(ctx context.Context, v domain.Viewer, quizID string) (*domain.Quiz, error) {
	if v.Anonymous() {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in to take quizzes"))
	}

	q, err := s.catalog.GetQuiz(ctx, catalog.GetQuizRequest{QuizID: quizID})
	if err != nil {
		return nil, err
	}

	d, err := s.guard.CheckQuiz(ctx, v, q)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}

	return q, nil
}

func (s *Service) reject(ctx context.Context, req SubmitRequest, err error) {
	reason := errors.ReasonOf(err)
	if reason == "" {
		return
	}

	s.eb.Publish(ctx, domain.EventAttemptRejected{
		QuizID: req.QuizID,
		UserID: req.Viewer.UserID,
		Reason: reason,
	})
}
