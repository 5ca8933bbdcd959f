package domain

const (
	EventNameAttemptSubmitted = "attempt.submitted"
	EventNameAttemptRejected  = "attempt.rejected"
	EventNameProgressUpdated  = "progress.updated"
)

type EventAttemptSubmitted struct {
	Submission  Submission
	MaxAttempts int
	Standalone  bool
	// CourseOwnerID is empty for standalone quizzes, and for course quizzes
	// whose course could not be read when the event was built.
	CourseOwnerID string
}

func (EventAttemptSubmitted) Name() string { return EventNameAttemptSubmitted }

// EventAttemptRejected is published when a submission is refused, Reason
// being the error reason returned to the caller.
type EventAttemptRejected struct {
	QuizID string
	UserID string
	Reason string
}

func (EventAttemptRejected) Name() string { return EventNameAttemptRejected }

// ProgressSource tells how a completion change was triggered.
type ProgressSource string

const (
	SourceManual   ProgressSource = "manual"
	SourcePlayback ProgressSource = "playback"
)

type EventProgressUpdated struct {
	Progress Progress
	Course   CourseProgress
	Source   ProgressSource
}

func (EventProgressUpdated) Name() string { return EventNameProgressUpdated }
