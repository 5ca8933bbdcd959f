package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ahmednader515/alkian/internal/attempt"
	"github.com/ahmednader515/alkian/internal/auth"
	"github.com/ahmednader515/alkian/internal/course"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/event"
	"github.com/ahmednader515/alkian/internal/progress"
	"github.com/ahmednader515/alkian/internal/result"
)

type Config struct {
	Router   gin.IRouter
	EventBus *event.Bus
	Auth     *auth.Service
	Course   *course.Service
	Progress *progress.Service
	Attempt  *attempt.Service
	Result   *result.Service
	// Redis receives user notifications. Nil disables them.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	cs *course.Service
	ps *progress.Service
	as *attempt.Service
	rs *result.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		cs:     c.Course,
		ps:     c.Progress,
		as:     c.Attempt,
		rs:     c.Result,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1", c.Auth.Middleware())

	v1.GET("/courses/:courseID/timeline", a.GetTimeline)
	v1.GET("/courses/:courseID/navigation", a.GetNavigation)
	v1.GET("/courses/:courseID/progress", a.GetCourseProgress)
	v1.POST("/courses/:courseID/refresh", a.RefreshCourse)

	v1.GET("/chapters/:chapterID", a.GetChapter)
	v1.GET("/chapters/:chapterID/progress", a.GetProgress)
	v1.PUT("/chapters/:chapterID/progress", a.MarkCompleted)
	v1.DELETE("/chapters/:chapterID/progress", a.MarkIncomplete)
	v1.POST("/chapters/:chapterID/video-ended", a.VideoEnded)

	v1.GET("/quizzes/:quizID/eligibility", a.GetEligibility)
	v1.POST("/quizzes/:quizID/attempts", a.StartAttempt)
	v1.POST("/quizzes/:quizID/submissions", a.SubmitAttempt)
	v1.GET("/quizzes/:quizID/results/latest", a.GetLatestResult)
	v1.GET("/quizzes/:quizID/results", a.ListResults)

	// Register event handlers
	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameAttemptSubmitted, func(ctx context.Context, e event.Event) error {
			return a.PublishAttemptSubmitted(ctx, e.(domain.EventAttemptSubmitted))
		})
		c.EventBus.Subscribe(domain.EventNameProgressUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishProgressUpdated(ctx, e.(domain.EventProgressUpdated))
		})
	}

	return a
}

// writeError renders err with the status its code maps to. Internal errors
// are logged here and reach the client without their cause.
func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}
