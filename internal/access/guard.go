package access

import (
	"context"

	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/domain"
)

// Purchases is the purchase ledger as seen by the gate.
type Purchases interface {
	HasPurchased(ctx context.Context, userID, courseID string) (bool, error)
}

type GuardConfig struct {
	Catalog   *catalog.Service
	Purchases Purchases
}

// Guard gathers the facts CanAccess needs and evaluates it. Services use it
// before serving gated content or mutating state.
type Guard struct {
	catalog   *catalog.Service
	purchases Purchases
}

func NewGuard(c GuardConfig) *Guard {
	return &Guard{
		catalog:   c.Catalog,
		purchases: c.Purchases,
	}
}

// Purchased looks up the purchase fact, skipping the ledger for anonymous viewers.
func (g *Guard) Purchased(ctx context.Context, v domain.Viewer, courseID string) (bool, error) {
	if v.Anonymous() {
		return false, nil
	}
	return g.purchases.HasPurchased(ctx, v.UserID, courseID)
}

// Check evaluates access to an item of a course and returns the course
// content snapshot used for the decision.
func (g *Guard) Check(ctx context.Context, v domain.Viewer, courseID string, item domain.ContentItem) (*catalog.Content, Decision, error) {
	content, err := g.catalog.GetContent(ctx, catalog.GetContentRequest{CourseID: courseID})
	if err != nil {
		return nil, Decision{}, err
	}

	purchased, err := g.Purchased(ctx, v, courseID)
	if err != nil {
		return nil, Decision{}, err
	}

	return content, CanAccess(v, &content.Course, item, purchased), nil
}

// CheckQuiz evaluates access to a quiz, standalone or course-bound.
func (g *Guard) CheckQuiz(ctx context.Context, v domain.Viewer, q *domain.Quiz) (Decision, error) {
	item := domain.ContentItem{Kind: domain.KindQuiz, ItemID: q.QuizID, Title: q.Title, Position: q.Position}
	if q.Standalone() {
		return CanAccess(v, nil, item, false), nil
	}

	_, d, err := g.Check(ctx, v, q.CourseID, item)
	return d, err
}
