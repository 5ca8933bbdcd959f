package attempt_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/attempt"
	"github.com/ahmednader515/alkian/internal/catalog"
	"github.com/ahmednader515/alkian/internal/db/dbtest"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/event"
	"github.com/ahmednader515/alkian/internal/purchase"
)

var (
	buyer    = domain.Viewer{UserID: "u1", Role: domain.RoleStudent}
	stranger = domain.Viewer{UserID: "u2", Role: domain.RoleStudent}
)

func ptr[T any](v T) *T { return &v }

func TestService_Submit_SingleAttempt(t *testing.T) {
	s, f := makeService(t)
	ctx := context.Background()

	el, err := s.CanStart(ctx, attempt.CanStartRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.NoError(t, err)
	require.True(t, el.CanStart)
	require.Equal(t, 1, el.Remaining)

	sub, err := s.Submit(ctx, attempt.SubmitRequest{
		Viewer: buyer,
		QuizID: "quiz-1",
		Answers: []domain.Answer{
			{QuestionID: "q2", Value: "TRUE"},
			{QuestionID: "q1", Value: "4"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, sub.AttemptNumber)
	require.Equal(t, []domain.Answer{
		{QuestionID: "q1", Value: "4"},
		{QuestionID: "q2", Value: "true"},
		{QuestionID: "q3", Value: ""},
	}, sub.Answers, "answers should follow question order with blanks for unanswered")

	el, err = s.CanStart(ctx, attempt.CanStartRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.NoError(t, err)
	require.False(t, el.CanStart)
	require.Equal(t, 1, el.AttemptsUsed)
	require.Equal(t, 0, el.Remaining)

	_, err = s.Start(ctx, attempt.StartRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.True(t, errors.Is(err, errors.CodeResourceExhausted), "got %v", err)

	_, err = s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.True(t, errors.Is(err, errors.CodeResourceExhausted), "got %v", err)
	require.Equal(t, errors.ReasonAttemptsExhausted, errors.ReasonOf(err))

	require.Equal(t, 1, f.Count("quiz_submissions", "quiz_id = $1 AND user_id = $2", "quiz-1", "u1"))
}

func TestService_Submit_TwoAttempts(t *testing.T) {
	s, f := makeService(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		sub, err := s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-2"})
		require.NoError(t, err)
		require.Equal(t, i, sub.AttemptNumber)
	}

	_, err := s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-2"})
	require.True(t, errors.Is(err, errors.CodeResourceExhausted), "third attempt should fail, got %v", err)

	// Ceilings are per user.
	sub, err := s.Submit(ctx, attempt.SubmitRequest{Viewer: domain.Viewer{UserID: "u3"}, QuizID: "quiz-2"})
	require.NoError(t, err)
	require.Equal(t, 1, sub.AttemptNumber)

	require.Equal(t, 2, f.Count("quiz_submissions", "quiz_id = $1 AND user_id = $2", "quiz-2", "u1"))
}

func TestService_Submit_ConcurrentRace(t *testing.T) {
	s, f := makeService(t)

	const racers = 5
	var (
		ok        atomic.Int32
		exhausted atomic.Int32
	)

	var g errgroup.Group
	for range racers {
		g.Go(func() error {
			_, err := s.Submit(context.Background(), attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-1"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, errors.CodeResourceExhausted):
				exhausted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.EqualValues(t, 1, ok.Load(), "exactly one submission should win")
	require.EqualValues(t, racers-1, exhausted.Load())
	require.Equal(t, 1, f.Count("quiz_submissions", "quiz_id = $1 AND user_id = $2", "quiz-1", "u1"))
}

func TestService_Submit_ConcurrentRace_AttemptsLeft(t *testing.T) {
	s, f := makeService(t)

	const racers = 5
	var (
		ok        atomic.Int32
		exhausted atomic.Int32
	)

	var g errgroup.Group
	for range racers {
		g.Go(func() error {
			_, err := s.Submit(context.Background(), attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-2"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.ReasonOf(err) == errors.ReasonAttemptsExhausted:
				exhausted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.EqualValues(t, 2, ok.Load(), "both attempts should be used")
	require.EqualValues(t, racers-2, exhausted.Load())
	require.Equal(t, 2, f.Count("quiz_submissions", "quiz_id = $1 AND user_id = $2", "quiz-2", "u1"))
}

func TestService_Submit_NumberTaken(t *testing.T) {
	s, f := makeService(t)
	ctx := context.Background()

	// One attempt used, but stored under number 2: the next number collides
	// while an attempt is still left.
	f.Submission(domain.Submission{SubmissionID: "legacy", QuizID: "quiz-2", UserID: "u1", AttemptNumber: 2})

	_, err := s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-2"})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.CodeAborted), "got %v", err)
	require.Equal(t, errors.ReasonAttemptConflict, errors.ReasonOf(err))
	require.Equal(t, 1, f.Count("quiz_submissions", "quiz_id = $1 AND user_id = $2", "quiz-2", "u1"))
}

func TestService_Submit_Validation(t *testing.T) {
	tests := map[string]struct {
		answers []domain.Answer
	}{
		"unknown question": {
			answers: []domain.Answer{{QuestionID: "other", Value: "4"}},
		},
		"duplicate answer": {
			answers: []domain.Answer{{QuestionID: "q1", Value: "4"}, {QuestionID: "q1", Value: "3"}},
		},
		"multiple choice outside options": {
			answers: []domain.Answer{{QuestionID: "q1", Value: "5"}},
		},
		"true false with other value": {
			answers: []domain.Answer{{QuestionID: "q2", Value: "maybe"}},
		},
		"one bad entry among good ones": {
			answers: []domain.Answer{{QuestionID: "q1", Value: "4"}, {QuestionID: "q2", Value: "yes"}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, f := makeService(t)

			_, err := s.Submit(context.Background(), attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-1", Answers: tt.answers})
			require.True(t, errors.Is(err, errors.CodeInvalidArgument), "got %v", err)
			require.Equal(t, errors.ReasonValidation, errors.ReasonOf(err))
			require.Equal(t, 0, f.Count("quiz_submissions", "quiz_id = $1", "quiz-1"), "nothing should be stored")
		})
	}
}

func TestService_Start(t *testing.T) {
	s, _ := makeService(t)
	ctx := context.Background()

	resp, err := s.Start(ctx, attempt.StartRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.AttemptNumber)
	require.Equal(t, ptr(600), resp.TimerSeconds)
	require.Len(t, resp.Quiz.Questions, 3)
	for _, q := range resp.Quiz.Questions {
		require.Nil(t, q.CorrectAnswer, "correct answers should not leave with the questions")
	}

	resp, err = s.Start(ctx, attempt.StartRequest{Viewer: buyer, QuizID: "quiz-2"})
	require.NoError(t, err)
	require.Nil(t, resp.TimerSeconds, "quiz without timer should be unlimited")
}

func TestService_Guarded(t *testing.T) {
	tests := map[string]struct {
		viewer domain.Viewer
		quiz   string
		code   errors.Code
		reason string
	}{
		"anonymous viewer on course quiz": {
			viewer: domain.Viewer{}, quiz: "quiz-1",
			code: errors.CodeUnauthenticated, reason: errors.ReasonAuthRequired,
		},
		"anonymous viewer on standalone quiz": {
			viewer: domain.Viewer{}, quiz: "solo",
			code: errors.CodeUnauthenticated, reason: errors.ReasonAuthRequired,
		},
		"course quiz without purchase": {
			viewer: stranger, quiz: "quiz-1",
			code: errors.CodePermissionDenied, reason: errors.ReasonPurchaseRequired,
		},
		"unpublished quiz": {
			viewer: buyer, quiz: "draft",
			code: errors.CodeNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := makeService(t)

			_, err := s.CanStart(context.Background(), attempt.CanStartRequest{Viewer: tt.viewer, QuizID: tt.quiz})
			require.True(t, errors.Is(err, tt.code), "got %v", err)
			require.Equal(t, tt.reason, errors.ReasonOf(err))

			_, err = s.Submit(context.Background(), attempt.SubmitRequest{Viewer: tt.viewer, QuizID: tt.quiz})
			require.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}

	s, _ := makeService(t)
	sub, err := s.Submit(context.Background(), attempt.SubmitRequest{Viewer: stranger, QuizID: "solo"})
	require.NoError(t, err, "standalone quiz should not need a purchase")
	require.Equal(t, 1, sub.AttemptNumber)
}

func TestService_PublishEvents(t *testing.T) {
	eb := event.NewBus()

	var (
		mu        sync.Mutex
		submitted []domain.EventAttemptSubmitted
		rejected  []domain.EventAttemptRejected
	)
	eb.Subscribe(domain.EventNameAttemptSubmitted, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		submitted = append(submitted, e.(domain.EventAttemptSubmitted))
		return nil
	})
	eb.Subscribe(domain.EventNameAttemptRejected, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		rejected = append(rejected, e.(domain.EventAttemptRejected))
		return nil
	})

	s, _ := makeService(t, withEventBus(eb))
	ctx := context.Background()

	_, err := s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.NoError(t, err)
	_, err = s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "quiz-1"})
	require.Error(t, err)
	_, err = s.Submit(ctx, attempt.SubmitRequest{Viewer: buyer, QuizID: "solo"})
	require.NoError(t, err)

	eb.Stop()

	require.Len(t, submitted, 2)
	byQuiz := map[string]domain.EventAttemptSubmitted{}
	for _, e := range submitted {
		byQuiz[e.Submission.QuizID] = e
	}

	require.Equal(t, 1, byQuiz["quiz-1"].MaxAttempts)
	require.False(t, byQuiz["quiz-1"].Standalone)
	require.Equal(t, "teacher-1", byQuiz["quiz-1"].CourseOwnerID)
	require.True(t, byQuiz["solo"].Standalone)
	require.Empty(t, byQuiz["solo"].CourseOwnerID)
	require.Len(t, rejected, 1)
	require.Equal(t, errors.ReasonAttemptsExhausted, rejected[0].Reason)
}

func makeService(t *testing.T, opts ...options) (*attempt.Service, *dbtest.Fixture) {
	d := dbtest.Open(t)
	f := dbtest.NewFixture(t, d)

	f.Course(domain.Course{CourseID: "course-1", OwnerID: "teacher-1", Title: "Go"})
	f.Quiz(domain.Quiz{
		QuizID: "quiz-1", CourseID: "course-1", Title: "Basics", Position: 1,
		TimerMinutes: ptr(10), MaxAttempts: 1, IsPublished: true,
		Questions: []domain.Question{
			{QuestionID: "q1", Position: 1, Type: domain.QuestionMultipleChoice, Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: ptr("4"), Points: decimal.NewFromInt(2)},
			{QuestionID: "q2", Position: 2, Type: domain.QuestionTrueFalse, Text: "Go has generics", CorrectAnswer: ptr("true"), Points: decimal.NewFromInt(1)},
			{QuestionID: "q3", Position: 3, Type: domain.QuestionShortAnswer, Text: "Name a channel op", Points: decimal.NewFromInt(1)},
		},
	})
	f.Quiz(domain.Quiz{QuizID: "quiz-2", CourseID: "course-1", Title: "Retry", Position: 2, MaxAttempts: 2, IsPublished: true})
	f.Quiz(domain.Quiz{QuizID: "draft", CourseID: "course-1", Title: "Draft", Position: 3})
	f.Quiz(domain.Quiz{QuizID: "solo", Title: "Standalone", IsPublished: true})
	f.Purchase("u1", "course-1")
	f.Purchase("u3", "course-1")

	cs := catalog.NewService(catalog.Config{DB: d})

	c := attempt.Config{
		DB:       d,
		EventBus: event.NewBus(),
		Catalog:  cs,
		Guard: access.NewGuard(access.GuardConfig{
			Catalog:   cs,
			Purchases: purchase.NewService(purchase.Config{DB: d}),
		}),
		Now: func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) },
	}

	for _, opt := range opts {
		opt(&c)
	}

	return attempt.NewService(c), f
}

type options func(c *attempt.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *attempt.Config) {
		c.EventBus = eb
	}
}
