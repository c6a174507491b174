package messaging

// Subjects follow {domain}.{collection}.{action}.
const (
	// SubjectTimelineInserted is published after a demo module's item was
	// inserted into a user's timeline.
	SubjectTimelineInserted = "notify.timeline.inserted"

	// SubjectLocationsUpdated is published after a user's stored location changed.
	SubjectLocationsUpdated = "notify.locations.updated"

	// SubjectAll matches every notify subject.
	SubjectAll = "notify.>"
)

// Header keys attached to published messages.
const (
	HeaderEventID   = "Event-Id"
	HeaderRequestID = "Request-Id"
	HeaderUserToken = "User-Token"

	// HeaderTimestamp and HeaderSignature are only set when signing is configured.
	HeaderTimestamp = "Event-Timestamp"
	HeaderSignature = "Signature"
)
