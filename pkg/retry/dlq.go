package retry

import (
	"encoding/json"
	"time"
)

// DLQSuffix is appended to a topic to name its dead letter topic
const DLQSuffix = ".dlq"

// DLQMessage is what lands on a dead letter topic after retries run out
type DLQMessage struct {
	OriginalTopic string            `json:"original_topic"`
	OriginalKey   string            `json:"original_key"`
	Payload       json.RawMessage   `json:"payload"`
	Headers       map[string]string `json:"headers,omitempty"`
	Error         string            `json:"error"`
	Attempts      int               `json:"attempts"`
	MovedToDLQAt  time.Time         `json:"moved_to_dlq_at"`
	Source        string            `json:"source"`
}

// DLQTopic returns the dead letter topic for a topic
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}

// NewDLQMessage wraps a failed payload
func NewDLQMessage(topic, key string, payload []byte, headers map[string]string, err error, attempts int, source string) *DLQMessage {
	msg := &DLQMessage{
		OriginalTopic: topic,
		OriginalKey:   key,
		Headers:       headers,
		Attempts:      attempts,
		MovedToDLQAt:  time.Now().UTC(),
		Source:        source,
	}
	if json.Valid(payload) {
		msg.Payload = payload
	} else {
		// Non-JSON payloads are kept as a JSON string
		raw, _ := json.Marshal(string(payload))
		msg.Payload = raw
	}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}
