// Package dbtest provides a file-backed sqlite database and content fixtures
// for tests of storage-backed services.
package dbtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/domain"
)

// Open returns a migrated database living in the test's temp dir.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		filepath.Join(t.TempDir(), "test.db"))

	d, err := db.Open(context.Background(), db.Config{Driver: db.DriverSQLite, DSN: dsn})
	require.NoError(t, err, "should open sqlite database")
	t.Cleanup(func() { d.Close() })

	return d
}

// Fixture writes content the way the external authoring dashboards would.
type Fixture struct {
	t  *testing.T
	db *sql.DB
	// seq gives rows strictly increasing creation times.
	seq int64
}

func NewFixture(t *testing.T, d *sql.DB) *Fixture {
	return &Fixture{t: t, db: d}
}

func (f *Fixture) created(at time.Time) int64 {
	if !at.IsZero() {
		return db.Millis(at)
	}
	f.seq++
	return f.seq
}

func (f *Fixture) Course(c domain.Course) domain.Course {
	f.t.Helper()
	_, err := f.db.Exec(`INSERT INTO courses (course_id, owner_id, title, price, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.CourseID, c.OwnerID, c.Title, c.Price.String(), f.created(c.CreatedAt))
	require.NoError(f.t, err, "insert course %s", c.CourseID)
	return c
}

func (f *Fixture) Chapter(c domain.Chapter) domain.Chapter {
	f.t.Helper()
	_, err := f.db.Exec(`INSERT INTO chapters (chapter_id, course_id, title, description, media_ref, position, is_free, is_published, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ChapterID, c.CourseID, c.Title, c.Description, c.MediaRef, c.Position, c.IsFree, c.IsPublished, f.created(c.CreatedAt))
	require.NoError(f.t, err, "insert chapter %s", c.ChapterID)
	return c
}

// Quiz inserts the quiz and its questions.
func (f *Fixture) Quiz(q domain.Quiz) domain.Quiz {
	f.t.Helper()

	var course, timer any
	if q.CourseID != "" {
		course = q.CourseID
	}
	if q.TimerMinutes != nil {
		timer = *q.TimerMinutes
	}
	if q.MaxAttempts == 0 {
		q.MaxAttempts = 1
	}

	_, err := f.db.Exec(`INSERT INTO quizzes (quiz_id, course_id, title, position, timer_minutes, max_attempts, is_published, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.QuizID, course, q.Title, q.Position, timer, q.MaxAttempts, q.IsPublished, f.created(q.CreatedAt))
	require.NoError(f.t, err, "insert quiz %s", q.QuizID)

	for i, qq := range q.Questions {
		qq.QuizID = q.QuizID
		q.Questions[i] = f.Question(qq)
	}

	return q
}

func (f *Fixture) Question(q domain.Question) domain.Question {
	f.t.Helper()

	opts, err := json.Marshal(q.Options)
	require.NoError(f.t, err)
	if q.Options == nil {
		opts = []byte("[]")
	}

	var correct any
	if q.CorrectAnswer != nil {
		correct = *q.CorrectAnswer
	}

	_, err = f.db.Exec(`INSERT INTO questions (question_id, quiz_id, position, type, text, options_json, correct_answer, points)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.QuestionID, q.QuizID, q.Position, string(q.Type), q.Text, string(opts), correct, q.Points.String())
	require.NoError(f.t, err, "insert question %s", q.QuestionID)
	return q
}

func (f *Fixture) Purchase(userID, courseID string) {
	f.t.Helper()
	_, err := f.db.Exec(`INSERT INTO purchases (user_id, course_id) VALUES ($1, $2)`, userID, courseID)
	require.NoError(f.t, err, "insert purchase %s/%s", userID, courseID)
}

// Submission stores an attempt record as is, bypassing the attempt ceiling.
func (f *Fixture) Submission(s domain.Submission) {
	f.t.Helper()

	type answer struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	}
	answers := make([]answer, 0, len(s.Answers))
	for _, a := range s.Answers {
		answers = append(answers, answer{QuestionID: a.QuestionID, Value: a.Value})
	}

	b, err := json.Marshal(answers)
	require.NoError(f.t, err)

	_, err = f.db.Exec(`INSERT INTO quiz_submissions (submission_id, quiz_id, user_id, attempt_number, submitted_at, answers_json)
VALUES ($1, $2, $3, $4, $5, $6)`,
		s.SubmissionID, s.QuizID, s.UserID, s.AttemptNumber, f.created(s.SubmittedAt), string(b))
	require.NoError(f.t, err, "insert submission %s", s.SubmissionID)
}

// Count returns the number of rows in table matching where.
func (f *Fixture) Count(table, where string, args ...any) int {
	f.t.Helper()
	var n int
	err := f.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where), args...).Scan(&n)
	require.NoError(f.t, err)
	return n
}
