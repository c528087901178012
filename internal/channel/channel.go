// Package channel implements the posting capability behind account
// rotation: every external mechanism is reduced to login + post.
package channel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/commentflow/outreach-server-go/internal/model"
)

// Session is a logged-in context on a channel. Material is the state
// worth caching on the account for session restore; Close releases any
// resources the session holds and must be safe to call on every exit path.
type Session interface {
	Material() json.RawMessage
	Close() error
}

// PostResult is the outcome of a successful post.
type PostResult struct {
	ExternalRef string
}

// Channel is the uniform capability the rotation manager drives. Login
// failures indicate broken credentials or infrastructure and feed the
// account circuit breaker; Post failures indicate target-level rejection
// and do not.
type Channel interface {
	Kind() model.ChannelKind
	// Budget is the wall-clock budget for one full rotation run on this channel.
	Budget() time.Duration
	Login(ctx context.Context, account *model.ExecutionAccount) (Session, error)
	Post(ctx context.Context, session Session, targetURL, text string) (*PostResult, error)
}

// sessionMaxAge bounds how long cached session material is trusted before
// a fresh login is forced.
const sessionMaxAge = 12 * time.Hour
