package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ahmednader515/alkian/internal/errors"
)

func TestError_HTTPStatusCode(t *testing.T) {
	tests := map[string]struct {
		err  *errors.Error
		want int
	}{
		"not found":          {err: errors.NotFound("quiz %s", "q1"), want: http.StatusNotFound},
		"validation":         {err: errors.Invalid("bad answer"), want: http.StatusBadRequest},
		"attempts exhausted": {err: errors.AttemptsExhausted("no more"), want: http.StatusConflict},
		"attempt conflict":   {err: errors.New(errors.CodeAborted, errors.WithReason(errors.ReasonAttemptConflict)), want: http.StatusConflict},
		"locked":             {err: errors.New(errors.CodePermissionDenied), want: http.StatusForbidden},
		"unauthenticated":    {err: errors.New(errors.CodeUnauthenticated), want: http.StatusUnauthorized},
		"internal":           {err: errors.Internal(fmt.Errorf("boom")), want: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatusCode())
		})
	}
}

func TestConvert(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", errors.AttemptsExhausted("quiz=%s", "q1"))

	e := errors.Convert(wrapped)
	require.Equal(t, errors.CodeResourceExhausted, e.Code)
	require.Equal(t, errors.ReasonAttemptsExhausted, e.Reason)
	require.Equal(t, "quiz=q1", e.Message)
	require.True(t, errors.Is(wrapped, errors.CodeResourceExhausted))
	require.Equal(t, errors.ReasonAttemptsExhausted, errors.ReasonOf(wrapped))

	plain := stderrors.New("connection reset")
	e = errors.Convert(plain)
	require.Equal(t, errors.CodeInternal, e.Code)
	require.ErrorIs(t, e, plain)
	require.Empty(t, errors.ReasonOf(plain))
}

func TestError_GRPCStatus(t *testing.T) {
	st, ok := status.FromError(errors.NotFound("chapter c1"))
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
	require.Equal(t, "chapter c1", st.Message())
}
