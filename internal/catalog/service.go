package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

const defaultTTL = time.Minute

type Config struct {
	DB *sql.DB
	// Redis caches course content snapshots. Nil disables caching.
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

// Service reads the authored course structure: courses, their chapters and
// quizzes with positions, and quiz questions.
type Service struct {
	db     *sql.DB
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewService(c Config) *Service {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Service{
		db:     c.DB,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    ttl,
	}
}

// Content is a snapshot of a course with its published chapters and quizzes.
// Quizzes carry no questions.
type Content struct {
	Course   domain.Course
	Chapters []domain.Chapter
	Quizzes  []domain.Quiz
}

type GetContentRequest struct {
	CourseID string
}

// GetContent returns the published content of a course, from cache when possible.
func (s *Service) GetContent(ctx context.Context, req GetContentRequest) (*Content, error) {
	if c, ok := s.getCached(ctx, req.CourseID); ok {
		return c, nil
	}

	c, err := s.loadContent(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	s.setCached(ctx, c)
	return c, nil
}

// Invalidate drops the cached snapshot of a course. Authoring tools call it
// after changing positions, publish flags or free flags.
func (s *Service) Invalidate(ctx context.Context, courseID string) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, s.getContentKey(courseID)).Err(); err != nil {
		return fmt.Errorf("invalidate content: course=%s: %w", courseID, err)
	}
	return nil
}

func (s *Service) getCached(ctx context.Context, courseID string) (*Content, bool) {
	if s.redis == nil {
		return nil, false
	}

	b, err := s.redis.Get(ctx, s.getContentKey(courseID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "catalog: read cache failed", "course_id", courseID, "error", err)
		return nil, false
	}

	var c Content
	if err := json.Unmarshal(b, &c); err != nil {
		slog.WarnContext(ctx, "catalog: decode cache failed", "course_id", courseID, "error", err)
		return nil, false
	}

	return &c, true
}

func (s *Service) setCached(ctx context.Context, c *Content) {
	if s.redis == nil {
		return
	}

	b, err := json.Marshal(c)
	if err != nil {
		slog.WarnContext(ctx, "catalog: encode cache failed", "course_id", c.Course.CourseID, "error", err)
		return
	}

	if err := s.redis.Set(ctx, s.getContentKey(c.Course.CourseID), b, s.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "catalog: write cache failed", "course_id", c.Course.CourseID, "error", err)
	}
}

func (s *Service) loadContent(ctx context.Context, courseID string) (*Content, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.listChapters(ctx, courseID)
	if err != nil {
		return nil, err
	}

	quizzes, err := s.listQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return &Content{
		Course:   *course,
		Chapters: chapters,
		Quizzes:  quizzes,
	}, nil
}

func (s *Service) getCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	const stmt = `SELECT course_id, owner_id, title, price, created_at FROM courses WHERE course_id = $1`

	var (
		c       domain.Course
		created int64
	)
	err := s.db.QueryRowContext(ctx, stmt, courseID).Scan(&c.CourseID, &c.OwnerID, &c.Title, &c.Price, &created)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("course not found: course=%s", courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	c.CreatedAt = db.FromMillis(created)
	return &c, nil
}

func (s *Service) listChapters(ctx context.Context, courseID string) ([]domain.Chapter, error) {
	const stmt = `
SELECT chapter_id, course_id, title, description, media_ref, position, is_free, is_published, created_at
FROM chapters
WHERE course_id = $1 AND is_published = $2
ORDER BY position, created_at, chapter_id;`

	rows, err := s.db.QueryContext(ctx, stmt, courseID, true)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]domain.Chapter, 0)
	for rows.Next() {
		var (
			c       domain.Chapter
			created int64
		)
		if err := rows.Scan(&c.ChapterID, &c.CourseID, &c.Title, &c.Description, &c.MediaRef,
			&c.Position, &c.IsFree, &c.IsPublished, &created); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		c.CreatedAt = db.FromMillis(created)
		chapters = append(chapters, c)
	}

	return chapters, rows.Err()
}

type GetChapterRequest struct {
	ChapterID string
}

// GetChapter returns a published chapter looked up by id alone.
func (s *Service) GetChapter(ctx context.Context, req GetChapterRequest) (*domain.Chapter, error) {
	const stmt = `
SELECT chapter_id, course_id, title, description, media_ref, position, is_free, is_published, created_at
FROM chapters
WHERE chapter_id = $1;`

	var (
		c       domain.Chapter
		created int64
	)
	err := s.db.QueryRowContext(ctx, stmt, req.ChapterID).Scan(&c.ChapterID, &c.CourseID, &c.Title, &c.Description,
		&c.MediaRef, &c.Position, &c.IsFree, &c.IsPublished, &created)
	if stderrors.Is(err, sql.ErrNoRows) || (err == nil && !c.IsPublished) {
		return nil, errors.NotFound("chapter not found: chapter=%s", req.ChapterID)
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}

	c.CreatedAt = db.FromMillis(created)
	return &c, nil
}

const selectQuiz = `
SELECT quiz_id, COALESCE(course_id, ''), title, position, timer_minutes, max_attempts, is_published, created_at
FROM quizzes`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuiz(r scanner) (domain.Quiz, error) {
	var (
		q       domain.Quiz
		timer   sql.NullInt64
		created int64
	)
	if err := r.Scan(&q.QuizID, &q.CourseID, &q.Title, &q.Position, &timer, &q.MaxAttempts, &q.IsPublished, &created); err != nil {
		return domain.Quiz{}, err
	}
	if timer.Valid {
		m := int(timer.Int64)
		q.TimerMinutes = &m
	}
	q.CreatedAt = db.FromMillis(created)
	return q, nil
}

func (s *Service) listQuizzes(ctx context.Context, courseID string) ([]domain.Quiz, error) {
	const stmt = selectQuiz + `
WHERE course_id = $1 AND is_published = $2
ORDER BY position, created_at, quiz_id;`

	rows, err := s.db.QueryContext(ctx, stmt, courseID, true)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}

	return quizzes, rows.Err()
}

type GetQuizRequest struct {
	QuizID string
}

// GetQuiz returns a published quiz with its questions ordered by position.
// It always reads the database since attempt limits and timers come from it.
func (s *Service) GetQuiz(ctx context.Context, req GetQuizRequest) (*domain.Quiz, error) {
	const stmt = selectQuiz + ` WHERE quiz_id = $1`

	q, err := scanQuiz(s.db.QueryRowContext(ctx, stmt, req.QuizID))
	if stderrors.Is(err, sql.ErrNoRows) || (err == nil && !q.IsPublished) {
		return nil, errors.NotFound("quiz not found: quiz=%s", req.QuizID)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	q.Questions, err = s.listQuestions(ctx, q.QuizID)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

func (s *Service) listQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	const stmt = `
SELECT question_id, quiz_id, position, type, text, options_json, correct_answer, points
FROM questions
WHERE quiz_id = $1
ORDER BY position, question_id;`

	rows, err := s.db.QueryContext(ctx, stmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			typ     string
			options string
			correct sql.NullString
		)
		if err := rows.Scan(&q.QuestionID, &q.QuizID, &q.Position, &typ, &q.Text, &options, &correct, &q.Points); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(typ)
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: question=%s: %w", q.QuestionID, err)
		}
		if correct.Valid {
			q.CorrectAnswer = &correct.String
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// FindChapter returns the chapter of the snapshot, or NotFound.
func (c *Content) FindChapter(chapterID string) (*domain.Chapter, error) {
	for i := range c.Chapters {
		if c.Chapters[i].ChapterID == chapterID {
			return &c.Chapters[i], nil
		}
	}
	return nil, errors.NotFound("chapter not found: course=%s chapter=%s", c.Course.CourseID, chapterID)
}

func (s *Service) getContentKey(courseID string) string {
	return fmt.Sprintf("%s:course:%s:content", s.prefix, courseID)
}
