package telemetry

import "time"

// Event types recorded by the auth subsystem.
const (
	EventLoginSuccess   = "auth.login.success"
	EventLoginFailure   = "auth.login.failure"
	EventRefreshRotated = "auth.refresh.rotated"
	EventRefreshReuse   = "auth.refresh.reuse"
	EventLogout         = "auth.logout"
	EventRegister       = "auth.register"
)

// Event is a security-relevant occurrence emitted for audit. It carries
// identifiers only; raw credentials and raw tokens never appear here.
type Event struct {
	Type      string
	UserID    string
	SessionID string
	Source    string
	CreatedAt time.Time
	Metadata  map[string]string
}
