package amqp

import (
	"encoding/json"
	"time"
)

// RecomputeMessage asks a consumer to re-derive one plan's aggregate. It only
// carries the id; the consumer reads current ledger state itself.
type RecomputeMessage struct {
	PlanID    string    `json:"plan_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecomputeMessage(planID, reason string) *RecomputeMessage {
	return &RecomputeMessage{
		PlanID:    planID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
