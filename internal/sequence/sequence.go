// Package sequence merges a course's chapters and quizzes into one ordered
// timeline and answers adjacency questions over it.
package sequence

import (
	"sort"

	"github.com/ahmednader515/alkian/internal/domain"
)

// BuildTimeline merges the published chapters and quizzes of a course.
//
// Items are ordered by position. For equal positions chapters precede
// quizzes, then earlier created items precede later ones, then ids break the
// remaining ties so the result never depends on input order.
func BuildTimeline(chapters []domain.Chapter, quizzes []domain.Quiz) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(chapters)+len(quizzes))

	for _, c := range chapters {
		if !c.IsPublished {
			continue
		}
		items = append(items, ChapterItem(c))
	}

	for _, q := range quizzes {
		if !q.IsPublished {
			continue
		}
		items = append(items, domain.ContentItem{
			Kind:      domain.KindQuiz,
			ItemID:    q.QuizID,
			Title:     q.Title,
			Position:  q.Position,
			CreatedAt: q.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})

	return items
}

func less(a, b domain.ContentItem) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if a.Kind != b.Kind {
		return a.Kind == domain.KindChapter
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ItemID < b.ItemID
}

// ChapterItem is the timeline entry of a chapter.
func ChapterItem(c domain.Chapter) domain.ContentItem {
	return domain.ContentItem{
		Kind:      domain.KindChapter,
		ItemID:    c.ChapterID,
		Title:     c.Title,
		Position:  c.Position,
		IsFree:    c.IsFree,
		CreatedAt: c.CreatedAt,
	}
}

// IndexOf returns the index of the item in the timeline, or -1. Kind is part
// of the key because chapters and quizzes are numbered independently.
func IndexOf(timeline []domain.ContentItem, kind domain.ItemKind, itemID string) int {
	for i, it := range timeline {
		if it.Kind == kind && it.ItemID == itemID {
			return i
		}
	}
	return -1
}

// NeighborIndexes returns the timeline indexes before and after the given
// item. Either is -1 at the edges of the timeline, both are -1 when the item
// is not part of it.
func NeighborIndexes(timeline []domain.ContentItem, kind domain.ItemKind, itemID string) (prev, next int) {
	i := IndexOf(timeline, kind, itemID)
	if i < 0 {
		return -1, -1
	}

	prev, next = i-1, i+1
	if next >= len(timeline) {
		next = -1
	}
	return prev, next
}

// NextOf returns the item following the given one. ok is false at the end
// of the timeline or when the item is not part of it.
func NextOf(timeline []domain.ContentItem, kind domain.ItemKind, itemID string) (domain.ContentItem, bool) {
	_, next := NeighborIndexes(timeline, kind, itemID)
	if next < 0 {
		return domain.ContentItem{}, false
	}
	return timeline[next], true
}

// PreviousOf returns the item preceding the given one. ok is false at the
// start of the timeline or when the item is not part of it.
func PreviousOf(timeline []domain.ContentItem, kind domain.ItemKind, itemID string) (domain.ContentItem, bool) {
	prev, _ := NeighborIndexes(timeline, kind, itemID)
	if prev < 0 {
		return domain.ContentItem{}, false
	}
	return timeline[prev], true
}

// Neighbors bundles PreviousOf and NextOf.
type Neighbors struct {
	Previous *domain.ContentItem
	Next     *domain.ContentItem
}

// NeighborsOf returns both neighbors of an item, nil where there is none.
func NeighborsOf(timeline []domain.ContentItem, kind domain.ItemKind, itemID string) Neighbors {
	var n Neighbors
	prev, next := NeighborIndexes(timeline, kind, itemID)
	if prev >= 0 {
		n.Previous = &timeline[prev]
	}
	if next >= 0 {
		n.Next = &timeline[next]
	}
	return n
}
