package internal

import (
	"context"
	"errors"
	"strings"
)

// MQClients lists all message queue client types available.
var MQClients = []string{}

// MQClient publishes host notifications to a message queue. Delivery is
// fire-and-forget; the daemon never depends on a notification arriving.
type MQClient interface {
	String() string
	Channel() string

	Connect(ctx context.Context, clientName string, args map[string]interface{}) error
	Publish(ctx context.Context, channelName string, data []byte) error

	IsClosed() bool
	Close()
}

func NewMQClient(mqType string) (MQClient, error) {
	switch mqType {
	case "redis":
		return &RedisMQClient{}, nil
	case "stan":
		return &StanMQClient{}, nil
	case "kafka":
		return &KafkaMQClient{}, nil
	case "jetstream":
		return &JetStreamMQClient{}, nil
	default:
		return nil, errors.New("no MQ client named " + mqType)
	}
}

// GetEntry returns the first match from a map, treating keys as case
// insensitive.
func GetEntry(m map[string]interface{}, key string) interface{} {
	key = strings.ToLower(key)

	for i, k := range m {
		if strings.ToLower(i) == key {
			return k
		}
	}

	return nil
}

// HostNotification is the flat record sent to the host when a pack has been
// created or mutated.
type HostNotification struct {
	PackID         string `json:"pack_id"`
	SourceIdentity string `json:"source_identity"`
	PackName       string `json:"pack_name"`
	Publisher      string `json:"publisher"`
}
