package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// CollectionSavedMessage announces that a collection was overwritten.
// It carries no payload; consumers reload from the store.
type CollectionSavedMessage struct {
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCollectionSavedMessage(key string, count int) *CollectionSavedMessage {
	return &CollectionSavedMessage{
		Key:       key,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

func (m *CollectionSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CollectionSavedMessageFromJSON(data []byte) (*CollectionSavedMessage, error) {
	var msg CollectionSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, fmt.Errorf("message without collection key")
	}
	return &msg, nil
}
