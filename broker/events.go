package broker

type EventType string

const (
	// Standardized event types in format: <resource>.<action>
	TaskCreated   EventType = "task.created"
	TaskUpdated   EventType = "task.updated"
	TaskCompleted EventType = "task.completed"
	TaskDeleted   EventType = "task.deleted"

	NoteCreated EventType = "note.created"
	NoteUpdated EventType = "note.updated"
	NoteDeleted EventType = "note.deleted"

	UserCreated EventType = "user.created"
)

const (
	UserSubject = "events.user"
	TaskSubject = "events.task"
	NoteSubject = "events.note"
)

// SubjectForEntity maps an outbox entity name to its broker subject.
func SubjectForEntity(entity string) string {
	switch entity {
	case "task":
		return TaskSubject
	case "note":
		return NoteSubject
	default:
		return UserSubject
	}
}
