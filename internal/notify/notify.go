// Package notify fans change notifications out to live WebSocket clients.
//
// Delivery is best effort: at most once, no ordering across mutations, no
// replay for clients that connect later. Clients treat events as hints and
// re-fetch.
package notify

const (
	EntityProject = "project"
	EntityTask    = "task"
)

// Event is the message pushed to clients; ID is the affected project's id
// for both entities.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// Update builds the "update" event for entity in project id.
func Update(entity, id string) Event {
	return Event{Type: "update", Entity: entity, ID: id}
}

// Publisher accepts events for delivery. Publish must not block on clients
// and has no error result: a failed delivery never affects the caller.
type Publisher interface {
	Publish(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
