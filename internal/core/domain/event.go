package domain

import "time"

// ReviewStatus is the terminal state a review job reports on completion.
type ReviewStatus string

const (
	ReviewSucceeded ReviewStatus = "success"
	ReviewFailed    ReviewStatus = "failed"
	ReviewCanceled  ReviewStatus = "canceled"
)

// ChannelReviewCompleted carries completion notifications for long-running
// review jobs.
const ChannelReviewCompleted = "review.completed"

// PushEvent is one published notification. Events are constructed per
// publish call and never persisted; delivery is at-most-once with no
// ordering guarantee, so receivers treat them as hints to re-fetch state.
type PushEvent struct {
	Channel string    `json:"channel"`
	Payload any       `json:"payload"`
	TS      time.Time `json:"ts"`
}

// NewPushEvent stamps the event with the current time when ts is zero.
func NewPushEvent(channel string, payload any, ts time.Time) PushEvent {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return PushEvent{Channel: channel, Payload: payload, TS: ts}
}

// ReviewCompletion is the payload published on ChannelReviewCompleted.
type ReviewCompletion struct {
	ReviewHistoryID string       `json:"review_history_id"`
	Status          ReviewStatus `json:"status"`
	Error           string       `json:"error,omitempty"`
}
