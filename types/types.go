package types

import "time"

type Session struct {
	UserID     int64     `json:"user_id"`
	ChatID     int64     `json:"chat_id"`
	State      ChatState `json:"state"`
	PendingURL string    `json:"pending_url,omitempty"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionStore keeps at most one pending URL per user. Updates are
// last-write-wins: a new submission overwrites whatever was pending.
type SessionStore interface {
	GetOrCreate(userID, chatID int64) (*Session, error)
	Get(userID int64) (*Session, error)
	Update(session *Session) error

	// TakePendingURL atomically reads and clears the pending URL,
	// moving the session back to StateAwaitingLink.
	TakePendingURL(userID int64) (url string, title string, ok bool, err error)

	Delete(userID int64) error
}

type MembershipDecision struct {
	UserID          int64
	IsChannelMember bool
	IsGroupMember   bool
}

func (d MembershipDecision) Allowed() bool {
	return d.IsChannelMember && d.IsGroupMember
}

type QualityRequest struct {
	UserID  int64
	ChatID  int64
	URL     string
	Quality Quality
}

type LinkPreview struct {
	Title        string
	ThumbnailURL string
}

type DownloadResult struct {
	LocalPath    string
	Kind         MediaKind
	DisplayTitle string
}

type DownloadEvent struct {
	UserID     int64
	URLHost    string
	Quality    string
	Outcome    string
	Detail     string
	DurationMS int64
	CreatedAt  time.Time
}

type StatsStore interface {
	RecordDownload(event DownloadEvent) error
}
