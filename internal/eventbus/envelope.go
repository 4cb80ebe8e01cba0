package eventbus

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope wraps a domain payload with the event_id subscribers extract
// for deduplication (spec §4.5.2, step 1). The republisher resends the
// stored envelope bytes verbatim, so a redelivered event always carries
// the same event_id.
type Envelope struct {
	EventID uuid.UUID       `json:"event_id"`
	Data    json.RawMessage `json:"data"`
}

func wrapEnvelope(eventID uuid.UUID, data []byte) ([]byte, error) {
	return json.Marshal(Envelope{EventID: eventID, Data: data})
}

// UnwrapEnvelope decodes a published payload back into its event_id and
// inner domain data, for subscriber handlers.
func UnwrapEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(payload, &env)
	return env, err
}
