package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ahmednader515/alkian/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	AttemptSubmitted struct {
		SubmissionID  string    `json:"submission_id"`
		QuizID        string    `json:"quiz_id"`
		UserID        string    `json:"user_id"`
		AttemptNumber int       `json:"attempt_number"`
		MaxAttempts   int       `json:"max_attempts"`
		SubmittedAt   time.Time `json:"submitted_at"`
	}

	ProgressUpdated struct {
		ChapterID   string          `json:"chapter_id"`
		CourseID    string          `json:"course_id"`
		IsCompleted bool            `json:"is_completed"`
		Percentage  decimal.Decimal `json:"percentage"`
		Source      string          `json:"source"`
	}
)

// PublishAttemptSubmitted notifies the student and, for course quizzes, the
// course owner.
func (a *API) PublishAttemptSubmitted(ctx context.Context, e domain.EventAttemptSubmitted) error {
	s := e.Submission

	data := AttemptSubmitted{
		SubmissionID:  s.SubmissionID,
		QuizID:        s.QuizID,
		UserID:        s.UserID,
		AttemptNumber: s.AttemptNumber,
		MaxAttempts:   e.MaxAttempts,
		SubmittedAt:   s.SubmittedAt,
	}

	users := []string{s.UserID}
	if e.CourseOwnerID != "" && e.CourseOwnerID != s.UserID {
		users = append(users, e.CourseOwnerID)
	}

	return a.notify(ctx, users, e.Name(), data)
}

func (a *API) PublishProgressUpdated(ctx context.Context, e domain.EventProgressUpdated) error {
	data := ProgressUpdated{
		ChapterID:   e.Progress.ChapterID,
		CourseID:    e.Progress.CourseID,
		IsCompleted: e.Progress.IsCompleted,
		Percentage:  e.Course.Percentage,
		Source:      string(e.Source),
	}

	return a.notify(ctx, []string{e.Progress.UserID}, e.Name(), data)
}

func (a *API) notify(ctx context.Context, users []string, event string, data any) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, user := range users {
		eg.Go(func() error {
			return a.publishNotification(ctx, user, event, data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
