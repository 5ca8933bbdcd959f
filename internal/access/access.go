// Package access decides whether a viewer may open a timeline item.
package access

import (
	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

type Reason string

const (
	ReasonFree      Reason = "FREE"
	ReasonOwner     Reason = "OWNER"
	ReasonPurchased Reason = "PURCHASED"
	ReasonLocked    Reason = "LOCKED"
)

// Action is what a locked viewer has to do next.
type Action string

const (
	ActionNone         Action = ""
	ActionAuthenticate Action = "AUTHENTICATE"
	ActionPurchase     Action = "PURCHASE"
)

type Decision struct {
	Allowed bool
	Reason  Reason
	Action  Action
}

var (
	allowFree      = Decision{Allowed: true, Reason: ReasonFree}
	allowOwner     = Decision{Allowed: true, Reason: ReasonOwner}
	allowPurchased = Decision{Allowed: true, Reason: ReasonPurchased}
)

// CanAccess decides access to a course item. purchased is the ledger fact
// for (viewer, course) and is ignored for anonymous viewers. A nil course
// means the item is a standalone quiz.
func CanAccess(v domain.Viewer, course *domain.Course, item domain.ContentItem, purchased bool) Decision {
	if course == nil {
		if item.Kind == domain.KindQuiz {
			return allowFree
		}
		return locked(v)
	}

	if !v.Anonymous() {
		if v.Role == domain.RoleAdmin || v.UserID == course.OwnerID {
			return allowOwner
		}
		if purchased {
			return allowPurchased
		}
	}

	if item.Kind == domain.KindChapter && item.IsFree {
		return allowFree
	}

	return locked(v)
}

func locked(v domain.Viewer) Decision {
	if v.Anonymous() {
		return Decision{Reason: ReasonLocked, Action: ActionAuthenticate}
	}
	return Decision{Reason: ReasonLocked, Action: ActionPurchase}
}

// Err converts a denial into the error returned to callers, or nil when the
// decision allows access.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Action == ActionAuthenticate:
		return errors.New(errors.CodePermissionDenied,
			errors.WithReason(errors.ReasonAuthRequired),
			errors.WithMessagef("sign in and purchase the course to access this content"))
	default:
		return errors.New(errors.CodePermissionDenied,
			errors.WithReason(errors.ReasonPurchaseRequired),
			errors.WithMessagef("purchase the course to access this content"))
	}
}
