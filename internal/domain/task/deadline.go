package task

import "time"

// EffectiveStatus maps a task and a wall-clock instant to the status the task
// should be in once elapsed deadlines are taken into account.
//
// It is a pure function: it never mutates t, and identical inputs always
// produce identical outputs. The lifecycle engine calls it immediately before
// validating any command and on every read path, so a task's observable
// status tracks wall-clock time without any background sweeper. Rules are
// checked independently and short-circuit at the first match; terminal
// statuses are returned unchanged.
func EffectiveStatus(t *Task, now time.Time) Status {
	if t.Status.Terminal() {
		return t.Status
	}

	switch t.Status {
	case StatusOpen:
		if t.BidCount == 0 && now.After(t.CreatedAt.Add(time.Duration(t.BiddingDeadlineSeconds)*time.Second)) {
			return StatusCancelled
		}
	case StatusExecution:
		if t.AcceptedAt != nil && now.After(t.AcceptedAt.Add(time.Duration(t.ExecutionDeadlineSeconds)*time.Second)) {
			return StatusExpired
		}
	case StatusReview:
		// Review timeout is auto-approval.
		if t.SubmittedAt != nil && now.After(t.SubmittedAt.Add(time.Duration(t.ReviewDeadlineSeconds)*time.Second)) {
			return StatusCompleted
		}
	}
	return t.Status
}
