// Package notify carries task change events from the lifecycle and scheduler
// out to connected clients and push providers. Delivery is best-effort:
// failures are logged and never block a state transition.
package notify

// Message is one frame on the real-time channel.
type Message struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId,omitempty"`
	OK     *bool  `json:"ok,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Message types on the real-time channel.
const (
	TypeAuth        = "auth"
	TypeTaskChanged = "task.changed"
	TypeTaskRemoved = "task.removed"
	TypePing        = "ping"
	TypePong        = "pong"
)

// Gateway is the boundary every task change crosses on its way out. The core
// decides what to notify and to whom; implementations own delivery.
type Gateway interface {
	TaskChanged(identities []string, taskID string)
	TaskRemoved(identities []string, taskID string)
}

// Fanout forwards each event to every configured gateway.
type Fanout []Gateway

func (f Fanout) TaskChanged(identities []string, taskID string) {
	for _, g := range f {
		g.TaskChanged(identities, taskID)
	}
}

func (f Fanout) TaskRemoved(identities []string, taskID string) {
	for _, g := range f {
		g.TaskRemoved(identities, taskID)
	}
}

// Discard is a Gateway that drops every event. Used where notification is
// not wired, such as one-off CLI sweeps.
type Discard struct{}

func (Discard) TaskChanged(identities []string, taskID string) {}
func (Discard) TaskRemoved(identities []string, taskID string) {}
