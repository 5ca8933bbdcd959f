package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmednader515/alkian/internal/attempt"
	"github.com/ahmednader515/alkian/internal/auth"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
	"github.com/ahmednader515/alkian/internal/result"
)

func (a *API) GetEligibility(c *gin.Context) {
	el, err := a.as.CanStart(c.Request.Context(), attempt.CanStartRequest{
		Viewer: auth.ViewerFrom(c),
		QuizID: c.Param("quizID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEligibility(el))
}

func (a *API) StartAttempt(c *gin.Context) {
	resp, err := a.as.Start(c.Request.Context(), attempt.StartRequest{
		Viewer: auth.ViewerFrom(c),
		QuizID: c.Param("quizID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toStartedAttempt(resp))
}

// SubmitAttempt serves manual submission and timer expiry alike.
func (a *API) SubmitAttempt(c *gin.Context) {
	var body SubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithReason(errors.ReasonValidation),
			errors.WithMessagef("malformed submission body"),
			errors.WithCause(err)))
		return
	}

	answers := make([]domain.Answer, 0, len(body.Answers))
	for _, ans := range body.Answers {
		answers = append(answers, domain.Answer{QuestionID: ans.QuestionID, Value: ans.Value})
	}

	sub, err := a.as.Submit(c.Request.Context(), attempt.SubmitRequest{
		Viewer:  auth.ViewerFrom(c),
		QuizID:  c.Param("quizID"),
		Answers: answers,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSubmission(*sub))
}

func (a *API) GetLatestResult(c *gin.Context) {
	sheet, err := a.rs.Latest(c.Request.Context(), result.LatestRequest{
		Viewer: auth.ViewerFrom(c),
		QuizID: c.Param("quizID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResult(sheet))
}

func (a *API) ListResults(c *gin.Context) {
	sheets, err := a.rs.List(c.Request.Context(), result.ListRequest{
		Viewer: auth.ViewerFrom(c),
		QuizID: c.Param("quizID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]Result, 0, len(sheets))
	for i := range sheets {
		resp = append(resp, toResult(&sheets[i]))
	}

	c.JSON(http.StatusOK, gin.H{"results": resp})
}
