package ports

// StatusLevel is the severity of a status message shown to a reader
type StatusLevel string

const (
	StatusInfo    StatusLevel = "info"
	StatusSuccess StatusLevel = "success"
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
)

// Message types pushed to session subscribers
const (
	MessageStatus      = "STATUS"
	MessageView        = "VIEW"
	MessageOptioLinked = "OPTIO_LINKED"
)

// Status is a user-visible progress or failure message
type Status struct {
	Message string      `json:"message"`
	Level   StatusLevel `json:"level"`
}

// SessionNotifier pushes messages to the clients attached to a session
type SessionNotifier interface {
	SendToSession(sessionID, messageType string, data interface{}) error
	Broadcast(messageType string, data interface{}) error
}

// NopNotifier discards every message
type NopNotifier struct{}

func (NopNotifier) SendToSession(string, string, interface{}) error { return nil }
func (NopNotifier) Broadcast(string, interface{}) error             { return nil }
