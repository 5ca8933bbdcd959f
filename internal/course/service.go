package course

import (
	"context"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/progress"
	"github.com/ahmednader515/alkian/internal/sequence"
)

type Config struct {
	Catalog  *catalog.Service
	Guard    *access.Guard
	Progress *progress.Service
}

// Service renders a course's table of contents and its chapter pages for a viewer.
type Service struct {
	catalog  *catalog.Service
	guard    *access.Guard
	progress *progress.Service
}

func NewService(c Config) *Service {
	return &Service{
		catalog:  c.Catalog,
		guard:    c.Guard,
		progress: c.Progress,
	}
}

// Item is a timeline slot as seen by one viewer.
type Item struct {
	domain.ContentItem
	Access access.Decision
	// Completed is only ever true for chapters.
	Completed bool
}

type Timeline struct {
	Course domain.Course
	Items  []Item
	// Progress is nil for anonymous viewers.
	Progress *domain.CourseProgress
}

type TimelineRequest struct {
	Viewer   domain.Viewer
	CourseID string
}

// Timeline returns the ordered content of a course with a gate decision per item.
func (s *Service) Timeline(ctx context.Context, req TimelineRequest) (*Timeline, error) {
	v, err := s.view(ctx, req.Viewer, req.CourseID)
	if err != nil {
		return nil, err
	}

	return &Timeline{
		Course:   v.content.Course,
		Items:    v.items,
		Progress: v.progress,
	}, nil
}

type ChapterRequest struct {
	Viewer    domain.Viewer
	ChapterID string
}

type ChapterView struct {
	Chapter   domain.Chapter
	Course    domain.Course
	Access    access.Decision
	Completed bool
	Previous  *Item
	Next      *Item
}

// Chapter returns a chapter page with its neighbors. Locked chapters fail
// with the gate's error so callers can prompt for sign-in or purchase.
func (s *Service) Chapter(ctx context.Context, req ChapterRequest) (*ChapterView, error) {
	ch, err := s.catalog.GetChapter(ctx, catalog.GetChapterRequest{ChapterID: req.ChapterID})
	if err != nil {
		return nil, err
	}

	v, err := s.view(ctx, req.Viewer, ch.CourseID)
	if err != nil {
		return nil, err
	}

	i := sequence.IndexOf(v.timeline, domain.KindChapter, ch.ChapterID)
	if i < 0 {
		// Published after the snapshot was cached.
		return nil, errors.NotFound("chapter not found: chapter=%s", req.ChapterID)
	}

	// The snapshot may predate a change of the free flag; gate on the row.
	cur := v.items[i]
	cur.ContentItem = sequence.ChapterItem(*ch)
	cur.Access = access.CanAccess(req.Viewer, &v.content.Course, cur.ContentItem, v.purchased)
	if err := cur.Access.Err(); err != nil {
		return nil, err
	}

	prev, next := v.neighbors(domain.KindChapter, ch.ChapterID)
	return &ChapterView{
		Chapter:   *ch,
		Course:    v.content.Course,
		Access:    cur.Access,
		Completed: cur.Completed,
		Previous:  prev,
		Next:      next,
	}, nil
}

type NavigationRequest struct {
	Viewer   domain.Viewer
	CourseID string
	Kind     domain.ItemKind
	ItemID   string
}

type Navigation struct {
	Current  Item
	Previous *Item
	Next     *Item
}

// Navigation returns the neighbors of a timeline item, tagged by kind so the
// caller can route to the chapter or the quiz page.
func (s *Service) Navigation(ctx context.Context, req NavigationRequest) (*Navigation, error) {
	if req.Kind != domain.KindChapter && req.Kind != domain.KindQuiz {
		return nil, errors.Invalid("unknown item kind %q", req.Kind)
	}

	v, err := s.view(ctx, req.Viewer, req.CourseID)
	if err != nil {
		return nil, err
	}

	i := sequence.IndexOf(v.timeline, req.Kind, req.ItemID)
	if i < 0 {
		return nil, errors.NotFound("%s not in course timeline: course=%s item=%s", req.Kind, req.CourseID, req.ItemID)
	}

	prev, next := v.neighbors(req.Kind, req.ItemID)
	return &Navigation{
		Current:  v.items[i],
		Previous: prev,
		Next:     next,
	}, nil
}

type RefreshRequest struct {
	Viewer   domain.Viewer
	CourseID string
}

// Refresh drops the cached content of a course so the next read sees the
// authored state. Only the owner or an admin may refresh; otherwise cached
// content lives until the catalog TTL runs out.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) error {
	if req.Viewer.Anonymous() {
		return errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in to refresh course content"))
	}

	content, err := s.catalog.GetContent(ctx, catalog.GetContentRequest{CourseID: req.CourseID})
	if err != nil {
		return err
	}
	if req.Viewer.Role != domain.RoleAdmin && req.Viewer.UserID != content.Course.OwnerID {
		return errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("only the course owner may refresh content: course=%s", req.CourseID))
	}

	return s.catalog.Invalidate(ctx, req.CourseID)
}

type courseView struct {
	content  *catalog.Content
	timeline []domain.ContentItem
	items    []Item
	progress *domain.CourseProgress
	// purchased is the ledger fact for the viewer.
	purchased bool
}

func (s *Service) view(ctx context.Context, viewer domain.Viewer, courseID string) (*courseView, error) {
	content, err := s.catalog.GetContent(ctx, catalog.GetContentRequest{CourseID: courseID})
	if err != nil {
		return nil, err
	}

	purchased, err := s.guard.Purchased(ctx, viewer, courseID)
	if err != nil {
		return nil, err
	}

	v := &courseView{
		content:   content,
		timeline:  sequence.BuildTimeline(content.Chapters, content.Quizzes),
		purchased: purchased,
	}

	done := map[string]bool{}
	if !viewer.Anonymous() {
		done, err = s.progress.CompletedChapters(ctx, viewer.UserID, courseID)
		if err != nil {
			return nil, err
		}

		v.progress, err = s.progress.CourseProgress(ctx, progress.CourseProgressRequest{UserID: viewer.UserID, CourseID: courseID})
		if err != nil {
			return nil, err
		}
	}

	v.items = make([]Item, 0, len(v.timeline))
	for _, it := range v.timeline {
		v.items = append(v.items, Item{
			ContentItem: it,
			Access:      access.CanAccess(viewer, &content.Course, it, purchased),
			Completed:   it.Kind == domain.KindChapter && done[it.ItemID],
		})
	}

	return v, nil
}

func (v *courseView) neighbors(kind domain.ItemKind, itemID string) (prev, next *Item) {
	p, n := sequence.NeighborIndexes(v.timeline, kind, itemID)
	if p >= 0 {
		prev = &v.items[p]
	}
	if n >= 0 {
		next = &v.items[n]
	}
	return prev, next
}
