package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the activation flag shared by content and roster records.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// AnyVersion is the expected version that skips optimistic concurrency checks.
const AnyVersion int64 = -1

// QAStatus is the lifecycle status of a group's live question.
type QAStatus string

const (
	QAOpened  QAStatus = "opened"
	QAClosed  QAStatus = "closed"
	QACleared QAStatus = "cleared"
)

// AnswerOption is one selectable answer of a question.
type AnswerOption struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
	Remark  string `json:"remark,omitempty" yaml:"remark"`
}

// Question is authored content. Score and Duration are optional until broadcast.
type Question struct {
	ID        string         `json:"id" yaml:"id"`
	EntityID  string         `json:"entityId" yaml:"entityId"`
	GroupID   string         `json:"groupId" yaml:"groupId"`
	SessionID string         `json:"sessionId" yaml:"sessionId"`
	Text      string         `json:"text" yaml:"text"`
	Remark    string         `json:"remark,omitempty" yaml:"remark"`
	Score     *int           `json:"score,omitempty" yaml:"score"`
	Duration  *int           `json:"duration,omitempty" yaml:"duration"` // seconds
	Order     int            `json:"order" yaml:"order"`
	Status    Status         `json:"status" yaml:"status"`
	Options   []AnswerOption `json:"options" yaml:"options"`
}

// Active reports whether the question may be broadcast. An empty status counts as active.
func (q Question) Active() bool {
	return q.Status == "" || q.Status == StatusActive
}

// BroadcastQuestion is a question that passed broadcast validation: score and
// duration are known and fixed for the life of the broadcast.
type BroadcastQuestion struct {
	Question        Question
	ScoreMax        int
	DurationSeconds int
}

// Broadcastable validates that q carries the fields a broadcast needs.
func (q Question) Broadcastable() (BroadcastQuestion, error) {
	if q.Score == nil {
		return BroadcastQuestion{}, fmt.Errorf("%w: question %s has no score", ErrIncompleteQuestion, q.ID)
	}
	if q.Duration == nil {
		return BroadcastQuestion{}, fmt.Errorf("%w: question %s has no duration", ErrIncompleteQuestion, q.ID)
	}
	if *q.Score < 0 || *q.Duration < 0 {
		return BroadcastQuestion{}, fmt.Errorf("%w: question %s has a negative score or duration", ErrIncompleteQuestion, q.ID)
	}
	return BroadcastQuestion{Question: q, ScoreMax: *q.Score, DurationSeconds: *q.Duration}, nil
}

// Payload builds the participant-facing snapshot. Correctness never leaves the server.
func (b BroadcastQuestion) Payload() BroadcastPayload {
	options := make([]BroadcastOption, 0, len(b.Question.Options))
	for _, opt := range b.Question.Options {
		options = append(options, BroadcastOption{OptionID: opt.ID, OptionText: opt.Text})
	}
	return BroadcastPayload{
		QuestionID: b.Question.ID,
		Question:   b.Question.Text,
		Remark:     b.Question.Remark,
		Options:    options,
	}
}

// BroadcastOption is an answer option as shown to participants.
type BroadcastOption struct {
	OptionID   string `json:"optionId"`
	OptionText string `json:"optionText"`
}

// BroadcastPayload is frozen at open time so later edits never change what participants saw.
type BroadcastPayload struct {
	QuestionID string            `json:"questionId"`
	Question   string            `json:"question"`
	Remark     string            `json:"remark,omitempty"`
	Options    []BroadcastOption `json:"options"`
}

// GroupState is the single live-question record of a group.
type GroupState struct {
	GroupID         string           `json:"groupId"`
	Status          QAStatus         `json:"status"`
	EntityID        string           `json:"entityId"`
	SessionID       string           `json:"sessionId"`
	QuestionID      string           `json:"questionId"`
	Payload         BroadcastPayload `json:"payload"`
	ScoreMax        int              `json:"scoreMax"`
	DurationSeconds int              `json:"durationSeconds"`
	StartTime       time.Time        `json:"startTime"`
	ModifiedBy      string           `json:"modifiedBy"`
	ModifiedAt      time.Time        `json:"modifiedAt"`
	Version         int64            `json:"version"`
}

// ExpiresAt returns the deadline of the broadcast; ok is false when it has no time limit.
func (g GroupState) ExpiresAt() (time.Time, bool) {
	if g.DurationSeconds <= 0 {
		return time.Time{}, false
	}
	return g.StartTime.Add(time.Duration(g.DurationSeconds) * time.Second), true
}

// Expired reports whether an opened broadcast has outlived its duration at now.
func (g GroupState) Expired(now time.Time) bool {
	if g.Status != QAOpened {
		return false
	}
	deadline, ok := g.ExpiresAt()
	return ok && now.After(deadline)
}

// EffectiveStatus treats an expired broadcast as closed even if no close was written.
func (g GroupState) EffectiveStatus(now time.Time) QAStatus {
	if g.Expired(now) {
		return QAClosed
	}
	return g.Status
}

// AcceptingAnswers reports whether submissions for the current question are allowed at now.
func (g GroupState) AcceptingAnswers(now time.Time) bool {
	return g.EffectiveStatus(now) == QAOpened
}

// ResponseKey identifies the single response a participant may give to one broadcast.
type ResponseKey struct {
	GroupID       string
	ParticipantID string
	SessionID     string
	QuestionID    string
}

// KeySeparator joins the parts of composite keys. Ids that take part in a key may not contain it.
const KeySeparator = "#"

// ValidateKeyIDs rejects ids that would make a composite key ambiguous.
func ValidateKeyIDs(ids ...string) error {
	for _, id := range ids {
		if strings.Contains(id, KeySeparator) {
			return fmt.Errorf("%w: id %q must not contain %q", ErrInvalidInput, id, KeySeparator)
		}
	}
	return nil
}

// SortKey orders responses within a group: participant, then session, then question.
func (k ResponseKey) SortKey() string {
	return strings.Join([]string{k.ParticipantID, k.SessionID, k.QuestionID}, KeySeparator)
}

// ResponseLog is an immutable scored submission.
type ResponseLog struct {
	ID                  string           `json:"id"`
	GroupID             string           `json:"groupId"`
	ParticipantID       string           `json:"participantId"`
	EntityID            string           `json:"entityId"`
	SessionID           string           `json:"sessionId"`
	QuestionID          string           `json:"questionId"`
	UserID              string           `json:"userId"`
	Email               string           `json:"email"`
	SelectedOptionIDs   []string         `json:"selectedOptionIds"`
	Score               float64          `json:"score"`
	ScoreMax            int              `json:"scoreMax"`
	CorrectPercent      float64          `json:"correctPercent"`
	ResponseTimeSeconds float64          `json:"responseTimeSeconds"`
	QARecord            BroadcastPayload `json:"qaRecord"`
	CreatedBy           string           `json:"createdBy"`
	CreatedAt           time.Time        `json:"createdAt"`
}

// Key returns the uniqueness key of the response.
func (r ResponseLog) Key() ResponseKey {
	return ResponseKey{
		GroupID:       r.GroupID,
		ParticipantID: r.ParticipantID,
		SessionID:     r.SessionID,
		QuestionID:    r.QuestionID,
	}
}

// ResponseQuery filters a group's responses. Empty fields match everything.
type ResponseQuery struct {
	GroupID       string
	ParticipantID string
	SessionID     string
	QuestionID    string
	Limit         int
	Cursor        string // sort key of the last item of the previous page
}

// Matches reports whether r passes the query filters (group is not checked).
func (q ResponseQuery) Matches(r ResponseLog) bool {
	if q.ParticipantID != "" && r.ParticipantID != q.ParticipantID {
		return false
	}
	if q.SessionID != "" && r.SessionID != q.SessionID {
		return false
	}
	if q.QuestionID != "" && r.QuestionID != q.QuestionID {
		return false
	}
	return true
}

// ResponsePage is one page of responses; NextCursor is empty on the last page.
type ResponsePage struct {
	Items      []ResponseLog `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Participant binds a user to a group.
type Participant struct {
	GroupID       string    `json:"groupId" yaml:"-"`
	ParticipantID string    `json:"participantId" yaml:"id"`
	UserID        string    `json:"userId" yaml:"userId"`
	Email         string    `json:"email" yaml:"email"`
	Status        Status    `json:"status" yaml:"status"`
	CreatedAt     time.Time `json:"createdAt" yaml:"-"`
	ModifiedAt    time.Time `json:"modifiedAt" yaml:"-"`
	ModifiedBy    string    `json:"modifiedBy" yaml:"-"`
}

// SessionScore is a participant's running total for one session of a group.
type SessionScore struct {
	GroupID       string    `json:"groupId"`
	ParticipantID string    `json:"participantId"`
	SessionID     string    `json:"sessionId"`
	Score         float64   `json:"score"`
	ScoreMax      int       `json:"scoreMax"`
	Responses     int       `json:"responses"`
	ModifiedAt    time.Time `json:"modifiedAt"`
}

// Principal is the caller identity used for audit stamps.
type Principal struct {
	UserID string
	Email  string
}

// SystemPrincipal is used for writes the service makes on its own (expiry sweeps).
var SystemPrincipal = Principal{UserID: "system"}

// Name is the value stamped into modifiedBy/createdBy.
func (p Principal) Name() string {
	if p.Email != "" {
		return p.Email
	}
	if p.UserID != "" {
		return p.UserID
	}
	return "unknown"
}
