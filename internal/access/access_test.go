package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednader515/alkian/internal/access"
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

var (
	course      = &domain.Course{CourseID: "course-1", OwnerID: "teacher-1"}
	freeChapter = domain.ContentItem{Kind: domain.KindChapter, ItemID: "c1", IsFree: true}
	paidChapter = domain.ContentItem{Kind: domain.KindChapter, ItemID: "c2"}
	courseQuiz  = domain.ContentItem{Kind: domain.KindQuiz, ItemID: "q1"}

	anonymous = domain.Viewer{}
	student   = domain.Viewer{UserID: "student-1", Role: domain.RoleStudent}
	owner     = domain.Viewer{UserID: "teacher-1", Role: domain.RoleTeacher}
	admin     = domain.Viewer{UserID: "admin-1", Role: domain.RoleAdmin}
)

func TestCanAccess(t *testing.T) {
	tests := map[string]struct {
		viewer    domain.Viewer
		course    *domain.Course
		item      domain.ContentItem
		purchased bool
		want      access.Decision
	}{
		"anonymous should open a free chapter": {
			viewer: anonymous, course: course, item: freeChapter,
			want: access.Decision{Allowed: true, Reason: access.ReasonFree},
		},
		"anonymous should be asked to authenticate for a paid chapter": {
			viewer: anonymous, course: course, item: paidChapter,
			want: access.Decision{Reason: access.ReasonLocked, Action: access.ActionAuthenticate},
		},
		"anonymous should be asked to authenticate for a course quiz": {
			viewer: anonymous, course: course, item: courseQuiz,
			want: access.Decision{Reason: access.ReasonLocked, Action: access.ActionAuthenticate},
		},
		"anonymous purchase fact should be ignored": {
			viewer: anonymous, course: course, item: paidChapter, purchased: true,
			want: access.Decision{Reason: access.ReasonLocked, Action: access.ActionAuthenticate},
		},
		"anonymous should open a standalone quiz": {
			viewer: anonymous, item: courseQuiz,
			want: access.Decision{Allowed: true, Reason: access.ReasonFree},
		},
		"student without purchase should be asked to purchase a paid chapter": {
			viewer: student, course: course, item: paidChapter,
			want: access.Decision{Reason: access.ReasonLocked, Action: access.ActionPurchase},
		},
		"student without purchase should open a free chapter": {
			viewer: student, course: course, item: freeChapter,
			want: access.Decision{Allowed: true, Reason: access.ReasonFree},
		},
		"student without purchase should not open a course quiz": {
			viewer: student, course: course, item: courseQuiz,
			want: access.Decision{Reason: access.ReasonLocked, Action: access.ActionPurchase},
		},
		"purchaser should open a course quiz": {
			viewer: student, course: course, item: courseQuiz, purchased: true,
			want: access.Decision{Allowed: true, Reason: access.ReasonPurchased},
		},
		"owner should open everything": {
			viewer: owner, course: course, item: courseQuiz,
			want: access.Decision{Allowed: true, Reason: access.ReasonOwner},
		},
		"admin should open everything": {
			viewer: admin, course: course, item: paidChapter,
			want: access.Decision{Allowed: true, Reason: access.ReasonOwner},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanAccess(tt.viewer, tt.course, tt.item, tt.purchased))
		})
	}
}

func TestCanAccess_PurchaseUnlocksEverything(t *testing.T) {
	items := []domain.ContentItem{freeChapter, paidChapter, courseQuiz}
	for _, it := range items {
		d := access.CanAccess(student, course, it, true)
		require.True(t, d.Allowed, "purchased viewer should open %s %s", it.Kind, it.ItemID)
	}
}

func TestDecision_Err(t *testing.T) {
	require.NoError(t, access.Decision{Allowed: true, Reason: access.ReasonFree}.Err())

	err := access.CanAccess(anonymous, course, paidChapter, false).Err()
	require.True(t, errors.Is(err, errors.CodePermissionDenied))
	require.Equal(t, errors.ReasonAuthRequired, errors.ReasonOf(err))

	err = access.CanAccess(student, course, paidChapter, false).Err()
	require.Equal(t, errors.ReasonPurchaseRequired, errors.ReasonOf(err))
}
