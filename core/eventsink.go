package core

import "pkt.systems/loquax/schema"

// EventSink receives session events from the core as they are processed.
type EventSink interface {
	OnSessionEvent(id schema.SessionID, event schema.SessionEvent)
}
