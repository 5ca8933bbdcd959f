package attempt

import (
	"slices"
	"strings"

	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

// normalizeAnswers checks the submitted answers against the quiz and returns
// one answer per question in question order, with "" for unanswered ones.
// Any bad entry rejects the whole submission. Correctness is not evaluated.
func normalizeAnswers(q *domain.Quiz, in []domain.Answer) ([]domain.Answer, error) {
	byID := make(map[string]domain.Question, len(q.Questions))
	for _, qq := range q.Questions {
		byID[qq.QuestionID] = qq
	}

	given := make(map[string]string, len(in))
	for _, a := range in {
		qq, ok := byID[a.QuestionID]
		if !ok {
			return nil, errors.Invalid("question %q is not part of quiz %s", a.QuestionID, q.QuizID)
		}
		if _, dup := given[a.QuestionID]; dup {
			return nil, errors.Invalid("question %q answered more than once", a.QuestionID)
		}

		v, err := normalizeValue(qq, a.Value)
		if err != nil {
			return nil, err
		}
		given[a.QuestionID] = v
	}

	out := make([]domain.Answer, 0, len(q.Questions))
	for _, qq := range q.Questions {
		out = append(out, domain.Answer{QuestionID: qq.QuestionID, Value: given[qq.QuestionID]})
	}

	return out, nil
}

func normalizeValue(q domain.Question, v string) (string, error) {
	if v == "" {
		return "", nil
	}

	switch q.Type {
	case domain.QuestionMultipleChoice:
		if !slices.Contains(q.Options, v) {
			return "", errors.Invalid("answer to question %q is not one of its options", q.QuestionID)
		}
		return v, nil

	case domain.QuestionTrueFalse:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", errors.Invalid("answer to question %q must be true or false", q.QuestionID)

	case domain.QuestionShortAnswer:
		return v, nil
	}

	return "", errors.Invalid("question %q has unsupported type %q", q.QuestionID, q.Type)
}
