package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmednader515/alkian/internal/auth"
	"github.com/ahmednader515/alkian/internal/course"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/progress"
)

func (a *API) GetTimeline(c *gin.Context) {
	tl, err := a.cs.Timeline(c.Request.Context(), course.TimelineRequest{
		Viewer:   auth.ViewerFrom(c),
		CourseID: c.Param("courseID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTimeline(tl))
}

// GetNavigation expects ?kind=chapter|quiz&item=<id>.
func (a *API) GetNavigation(c *gin.Context) {
	nav, err := a.cs.Navigation(c.Request.Context(), course.NavigationRequest{
		Viewer:   auth.ViewerFrom(c),
		CourseID: c.Param("courseID"),
		Kind:     domain.ItemKind(c.Query("kind")),
		ItemID:   c.Query("item"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Navigation{
		Current:  toTimelineItem(nav.Current),
		Previous: toTimelineItemPtr(nav.Previous),
		Next:     toTimelineItemPtr(nav.Next),
	})
}

func (a *API) GetCourseProgress(c *gin.Context) {
	v := auth.ViewerFrom(c)
	if v.Anonymous() {
		writeError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in to see progress")))
		return
	}

	// The timeline resolves the course so unknown ids fail with NotFound.
	tl, err := a.cs.Timeline(c.Request.Context(), course.TimelineRequest{Viewer: v, CourseID: c.Param("courseID")})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCourseProgress(*tl.Progress))
}

// RefreshCourse is called by authoring tools after they change a course's
// structure.
func (a *API) RefreshCourse(c *gin.Context) {
	err := a.cs.Refresh(c.Request.Context(), course.RefreshRequest{
		Viewer:   auth.ViewerFrom(c),
		CourseID: c.Param("courseID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) GetChapter(c *gin.Context) {
	v, err := a.cs.Chapter(c.Request.Context(), course.ChapterRequest{
		Viewer:    auth.ViewerFrom(c),
		ChapterID: c.Param("chapterID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toChapterView(v))
}

func (a *API) GetProgress(c *gin.Context) {
	resp, err := a.ps.Get(c.Request.Context(), progress.GetRequest{
		Viewer:    auth.ViewerFrom(c),
		ChapterID: c.Param("chapterID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProgressResponse(resp))
}

func (a *API) MarkCompleted(c *gin.Context) {
	resp, err := a.ps.MarkCompleted(c.Request.Context(), progress.MarkRequest{
		Viewer:    auth.ViewerFrom(c),
		ChapterID: c.Param("chapterID"),
		Source:    domain.SourceManual,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProgressResponse(resp))
}

func (a *API) MarkIncomplete(c *gin.Context) {
	resp, err := a.ps.MarkIncomplete(c.Request.Context(), progress.MarkRequest{
		Viewer:    auth.ViewerFrom(c),
		ChapterID: c.Param("chapterID"),
		Source:    domain.SourceManual,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProgressResponse(resp))
}

func (a *API) VideoEnded(c *gin.Context) {
	resp, err := a.ps.VideoEnded(c.Request.Context(), progress.VideoEndedRequest{
		Viewer:    auth.ViewerFrom(c),
		ChapterID: c.Param("chapterID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProgressResponse(resp))
}
