// Package model defines domain structs and constants shared across services.
package model

// Tier is the service class attached to each chat request.
type Tier string

const (
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// IsValid reports whether t is one of the known tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPremium, TierEnterprise:
		return true
	}
	return false
}

// Pool names. The pool set is fixed at startup.
const (
	PoolPriority = "priority"
	PoolStandard = "standard"
	PoolOverflow = "overflow"
)

// ChatRequest is the front-door request body for POST /chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Tier    Tier   `json:"tier"`
}

// ChatResponse is the front-door response body for POST /chat.
// Reply is null when the worker answered silently.
type ChatResponse struct {
	Reply       *string `json:"reply"`
	Tier        Tier    `json:"tier"`
	Pool        string  `json:"pool,omitempty"`
	Degraded    bool    `json:"degraded"`
	RateLimited bool    `json:"rate_limited,omitempty"`
	Silent      bool    `json:"silent,omitempty"`
	Blocked     bool    `json:"blocked,omitempty"`
}

// ProcessRequest is the payload forwarded to a worker's POST /process.
type ProcessRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Tier    Tier   `json:"tier"`
}

// ProcessReply is a worker's POST /process response body.
type ProcessReply struct {
	OK          bool    `json:"ok"`
	Reply       *string `json:"reply"`
	Blocked     bool    `json:"blocked,omitempty"`
	RateLimited bool    `json:"rate_limited,omitempty"`
	Silent      bool    `json:"silent,omitempty"`
}

// User is a stored user document.
type User struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Tier      Tier   `json:"tier"`
	Tone      string `json:"tone"`
	CreatedAt int64  `json:"created_at_ns"`
}

// Session is one user's chat session, scoped to a UTC calendar day.
// Tier is denormalized from the user document at write time.
type Session struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Day            string `json:"day"`
	Tier           Tier   `json:"tier"`
	Status         string `json:"status"`
	StartedAt      int64  `json:"started_at_ns"`
	LastActivityAt int64  `json:"last_activity_at_ns"`
}

// Session status values.
const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// Message is one stored chat message.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Tier      Tier   `json:"tier"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at_ns"`
}
