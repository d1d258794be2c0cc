package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the per-login runtime context. It lives in a session store
// from login until logout or expiry.
type Session struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Authenticated bool      `json:"authenticated"`
	Transcript    []Turn    `json:"transcript"`
	Library       []string  `json:"library,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Append adds turns and bumps UpdatedAt.
func (s *Session) Append(turns ...Turn) {
	s.Transcript = append(s.Transcript, turns...)
	s.UpdatedAt = time.Now()
}

// RecentTurns returns at most limit turns from the end of the transcript.
func (s *Session) RecentTurns(limit int) []Turn {
	if limit <= 0 || limit >= len(s.Transcript) {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-limit:]
}
