package result

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

type Config struct {
	DB      *sql.DB
	Catalog *catalog.Service
	Guard   *access.Guard
}

// Service projects stored attempts back into answer sheets. It never writes.
type Service struct {
	db      *sql.DB
	catalog *catalog.Service
	guard   *access.Guard
}

func NewService(c Config) *Service {
	return &Service{
		db:      c.DB,
		catalog: c.Catalog,
		guard:   c.Guard,
	}
}

// Entry is one recorded answer next to the question it answers. The correct
// answer and points are reference data only.
type Entry struct {
	Question domain.Question
	Answer   string
	// Answered is false for questions left blank.
	Answered bool
}

type Sheet struct {
	Submission  domain.Submission
	QuizTitle   string
	MaxAttempts int
	Entries     []Entry
}

type LatestRequest struct {
	Viewer domain.Viewer
	QuizID string
}

// Latest returns the viewer's most recent attempt at the quiz.
func (s *Service) Latest(ctx context.Context, req LatestRequest) (*Sheet, error) {
	q, err := s.loadQuiz(ctx, req.Viewer, req.QuizID)
	if err != nil {
		return nil, err
	}

	const stmt = selectSubmission + `
WHERE quiz_id = $1 AND user_id = $2
ORDER BY attempt_number DESC
LIMIT 1;`

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, stmt, q.QuizID, req.Viewer.UserID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("no submission yet: quiz=%s", q.QuizID)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest submission: %w", err)
	}

	return project(q, sub), nil
}

type ListRequest struct {
	Viewer domain.Viewer
	QuizID string
}

// List returns every attempt of the viewer at the quiz, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Sheet, error) {
	q, err := s.loadQuiz(ctx, req.Viewer, req.QuizID)
	if err != nil {
		return nil, err
	}

	const stmt = selectSubmission + `
WHERE quiz_id = $1 AND user_id = $2
ORDER BY attempt_number DESC;`

	rows, err := s.db.QueryContext(ctx, stmt, q.QuizID, req.Viewer.UserID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	sheets := make([]Sheet, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sheets = append(sheets, *project(q, sub))
	}

	return sheets, rows.Err()
}

func project(q *domain.Quiz, sub domain.Submission) *Sheet {
	byID := make(map[string]domain.Question, len(q.Questions))
	for _, qq := range q.Questions {
		byID[qq.QuestionID] = qq
	}

	sheet := &Sheet{
		Submission:  sub,
		QuizTitle:   q.Title,
		MaxAttempts: q.MaxAttempts,
		Entries:     make([]Entry, 0, len(sub.Answers)),
	}

	for _, a := range sub.Answers {
		qq, ok := byID[a.QuestionID]
		if !ok {
			// Question removed after the attempt; keep the answer.
			qq = domain.Question{QuestionID: a.QuestionID, QuizID: q.QuizID}
		}
		sheet.Entries = append(sheet.Entries, Entry{
			Question: qq,
			Answer:   a.Value,
			Answered: a.Value != "",
		})
	}

	return sheet
}

const selectSubmission = `
SELECT submission_id, quiz_id, user_id, attempt_number, submitted_at, answers_json
FROM quiz_submissions`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r scanner) (domain.Submission, error) {
	var (
		sub     domain.Submission
		at      int64
		answers string
	)
	if err := r.Scan(&sub.SubmissionID, &sub.QuizID, &sub.UserID, &sub.AttemptNumber, &at, &answers); err != nil {
		return domain.Submission{}, err
	}

	var stored []struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	}
	if err := json.Unmarshal([]byte(answers), &stored); err != nil {
		return domain.Submission{}, fmt.Errorf("decode answers: submission=%s: %w", sub.SubmissionID, err)
	}

	sub.SubmittedAt = db.FromMillis(at)
	sub.Answers = make([]domain.Answer, 0, len(stored))
	for _, a := range stored {
		sub.Answers = append(sub.Answers, domain.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}

	return sub, nil
}

func (s *Service) loadQuiz(ctx context.Context, v domain.Viewer, quizID string) (*domain.Quiz, error) {
	if v.Anonymous() {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in to see results"))
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
