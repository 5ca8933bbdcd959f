package progress

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/db"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/event"
	"github.com/ahmednader515/alkian/internal/sequence"
)

var hundred = decimal.NewFromInt(100)

type Config struct {
	DB       *sql.DB
	EventBus *event.Bus
	Catalog  *catalog.Service
	Guard    *access.Guard
	Now      func() time.Time
}

// Service tracks chapter completion per user.
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

type MarkRequest struct {
	Viewer    domain.Viewer
	ChapterID string
	Source    domain.ProgressSource
}

type MarkResponse struct {
	Progress domain.Progress
	Course   domain.CourseProgress
	// Changed is false when the call found the chapter already in the requested state.
	Changed bool
}

// MarkCompleted records the chapter as completed. Repeated calls, from the
// manual toggle or from playback, leave a single record and change nothing.
func (s *Service) MarkCompleted(ctx context.Context, req MarkRequest) (*MarkResponse, error) {
	ch, err := s.authorize(ctx, req.Viewer, req.ChapterID)
	if err != nil {
		return nil, err
	}

	const stmt = `
INSERT INTO user_progress (user_id, chapter_id, course_id, completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, chapter_id) DO NOTHING;`

	res, err := s.db.ExecContext(ctx, stmt, req.Viewer.UserID, ch.ChapterID, ch.CourseID, db.Millis(s.now()))
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	return s.respond(ctx, req, ch, res)
}

// MarkIncomplete removes the completion record. It is a no-op when the
// chapter is not completed.
func (s *Service) MarkIncomplete(ctx context.Context, req MarkRequest) (*MarkResponse, error) {
	ch, err := s.authorize(ctx, req.Viewer, req.ChapterID)
	if err != nil {
		return nil, err
	}

	const stmt = `DELETE FROM user_progress WHERE user_id = $1 AND chapter_id = $2;`

	res, err := s.db.ExecContext(ctx, stmt, req.Viewer.UserID, ch.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("mark incomplete: %w", err)
	}

	return s.respond(ctx, req, ch, res)
}

type VideoEndedRequest struct {
	Viewer    domain.Viewer
	ChapterID string
}

// VideoEnded is the playback-end hook; it completes the chapter if needed.
func (s *Service) VideoEnded(ctx context.Context, req VideoEndedRequest) (*MarkResponse, error) {
	return s.MarkCompleted(ctx, MarkRequest{
		Viewer:    req.Viewer,
		ChapterID: req.ChapterID,
		Source:    domain.SourcePlayback,
	})
}

type GetRequest struct {
	Viewer    domain.Viewer
	ChapterID string
}

// Get returns the viewer's completion state of a chapter and its course percentage.
func (s *Service) Get(ctx context.Context, req GetRequest) (*MarkResponse, error) {
	ch, err := s.authorize(ctx, req.Viewer, req.ChapterID)
	if err != nil {
		return nil, err
	}

	p, err := s.getProgress(ctx, req.Viewer.UserID, ch)
	if err != nil {
		return nil, err
	}

	cp, err := s.CourseProgress(ctx, CourseProgressRequest{UserID: req.Viewer.UserID, CourseID: ch.CourseID})
	if err != nil {
		return nil, err
	}

	return &MarkResponse{Progress: *p, Course: *cp}, nil
}

func (s *Service) respond(ctx context.Context, req MarkRequest, ch *domain.Chapter, res sql.Result) (*MarkResponse, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	p, err := s.getProgress(ctx, req.Viewer.UserID, ch)
	if err != nil {
		return nil, err
	}

	cp, err := s.CourseProgress(ctx, CourseProgressRequest{UserID: req.Viewer.UserID, CourseID: ch.CourseID})
	if err != nil {
		return nil, err
	}

	resp := &MarkResponse{Progress: *p, Course: *cp, Changed: n > 0}

	if resp.Changed {
		source := req.Source
		if source == "" {
			source = domain.SourceManual
		}
		s.eb.Publish(ctx, domain.EventProgressUpdated{
			Progress: resp.Progress,
			Course:   resp.Course,
			Source:   source,
		})
	}

	return resp, nil
}

// authorize resolves the chapter and applies the access gate. Progress is
// per user, so anonymous viewers are rejected before the gate.
func (s *Service) authorize(ctx context.Context, v domain.Viewer, chapterID string) (*domain.Chapter, error) {
	if v.Anonymous() {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in to track progress"))
	}

	ch, err := s.catalog.GetChapter(ctx, catalog.GetChapterRequest{ChapterID: chapterID})
	if err != nil {
		return nil, err
	}

	_, d, err := s.guard.Check(ctx, v, ch.CourseID, sequence.ChapterItem(*ch))
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}

	return ch, nil
}

func (s *Service) getProgress(ctx context.Context, userID string, ch *domain.Chapter) (*domain.Progress, error) {
	const stmt = `SELECT completed_at FROM user_progress WHERE user_id = $1 AND chapter_id = $2`

	p := &domain.Progress{
		UserID:    userID,
		ChapterID: ch.ChapterID,
		CourseID:  ch.CourseID,
	}

	var at int64
	err := s.db.QueryRowContext(ctx, stmt, userID, ch.ChapterID).Scan(&at)
	if stderrors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	p.IsCompleted = true
	p.CompletedAt = db.FromMillis(at)
	return p, nil
}

type CourseProgressRequest struct {
	UserID   string
	CourseID string
}

// CourseProgress is completed published chapters over all published chapters,
// as a percentage rounded to two places. A course without published chapters
// is at 0.
func (s *Service) CourseProgress(ctx context.Context, req CourseProgressRequest) (*domain.CourseProgress, error) {
	const stmt = `
SELECT
	COUNT(*) AS total,
	COUNT(p.chapter_id) AS completed
FROM chapters c
LEFT JOIN user_progress p ON p.chapter_id = c.chapter_id AND p.user_id = $1
WHERE c.course_id = $2 AND c.is_published = $3;`

	cp := &domain.CourseProgress{
		UserID:     req.UserID,
		CourseID:   req.CourseID,
		Percentage: decimal.Zero,
	}

	if err := s.db.QueryRowContext(ctx, stmt, req.UserID, req.CourseID, true).Scan(&cp.TotalChapters, &cp.CompletedChapters); err != nil {
		return nil, fmt.Errorf("course progress: %w", err)
	}

	if cp.TotalChapters > 0 {
		cp.Percentage = decimal.NewFromInt(int64(cp.CompletedChapters)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(cp.TotalChapters))).
			Round(2)
	}

	return cp, nil
}

// CompletedChapters returns the ids of the chapters of a course the user has completed.
func (s *Service) CompletedChapters(ctx context.Context, userID, courseID string) (map[string]bool, error) {
	const stmt = `SELECT chapter_id FROM user_progress WHERE user_id = $1 AND course_id = $2`

	done := make(map[string]bool)
	if userID == "" {
		return done, nil
	}

	rows, err := s.db.QueryContext(ctx, stmt, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("completed chapters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed chapter: %w", err)
		}
		done[id] = true
	}

	return done, rows.Err()
}
