package internal

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type recordingMQClient struct {
	channel string
	data    []byte
	closed  bool
}

func (mq *recordingMQClient) String() string { return "recording" }

func (mq *recordingMQClient) Channel() string { return mq.channel }

func (mq *recordingMQClient) Connect(ctx context.Context, clientName string, args map[string]interface{}) error {
	return nil
}

func (mq *recordingMQClient) Publish(ctx context.Context, channelName string, data []byte) error {
	mq.channel = channelName
	mq.data = data

	return nil
}

func (mq *recordingMQClient) IsClosed() bool { return mq.closed }

func (mq *recordingMQClient) Close() { mq.closed = true }

func writeTestConfiguration(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stickerd.yaml")

	err := os.WriteFile(path, []byte(contents), PermissionWrite)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	return path
}

func TestNewStickerd(t *testing.T) {
	configuration := writeTestConfiguration(t, `
host:
  source_identity: com.example.stickers
producer:
  enabled: false
`)

	sd, err := NewStickerd(io.Discard, StickerdOptions{
		ConfigurationLocation: configuration,
		DataDirectory:         t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	defer sd.Close()

	if sd.Configuration.Host.SourceIdentity != "com.example.stickers" {
		t.Errorf("Expected source identity to load, but got %s", sd.Configuration.Host.SourceIdentity)
	}

	if len(sd.Repository.ListPacks()) != 0 {
		t.Error("Expected an empty pack view")
	}
}

func TestNewStickerdMissingDataDirectory(t *testing.T) {
	configuration := writeTestConfiguration(t, "")

	_, err := NewStickerd(io.Discard, StickerdOptions{
		ConfigurationLocation: configuration,
	}, nil)
	if !errors.Is(err, ErrConfigurationValidateDataDir) {
		t.Errorf("Expected ErrConfigurationValidateDataDir, but got %v", err)
	}
}

func TestNewStickerdMissingConfiguration(t *testing.T) {
	_, err := NewStickerd(io.Discard, StickerdOptions{
		ConfigurationLocation: filepath.Join(t.TempDir(), "missing.yaml"),
		DataDirectory:         t.TempDir(),
	}, nil)
	if !errors.Is(err, ErrReadConfigurationFailure) {
		t.Errorf("Expected ErrReadConfigurationFailure, but got %v", err)
	}
}

func TestLoadConfigurationProducerWithoutType(t *testing.T) {
	configuration := writeTestConfiguration(t, `
producer:
  enabled: true
`)

	_, err := NewStickerd(io.Discard, StickerdOptions{
		ConfigurationLocation: configuration,
		DataDirectory:         t.TempDir(),
	}, nil)
	if !errors.Is(err, ErrLoadConfigurationFailure) {
		t.Errorf("Expected ErrLoadConfigurationFailure, but got %v", err)
	}
}

func TestNotifyPackChanged(t *testing.T) {
	sd := &Stickerd{
		Logger: zerolog.Nop(),
	}

	sd.Configuration.Host.SourceIdentity = "com.example.stickers"
	sd.Configuration.Producer.ChannelName = "stickerd.packs"

	pack := &StickerPack{
		Identifier: "custom_pack",
		Name:       "My Pack",
		Publisher:  "Someone",
	}

	err := sd.NotifyPackChanged(context.Background(), pack)
	if !errors.Is(err, ErrProducerMissing) {
		t.Errorf("Expected ErrProducerMissing, but got %v", err)
	}

	client := &recordingMQClient{}
	sd.ProducerClient = client

	err = sd.NotifyPackChanged(context.Background(), pack)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if client.channel != "stickerd.packs" {
		t.Errorf("Expected channel stickerd.packs, but got %s", client.channel)
	}

	var notification HostNotification

	err = json.Unmarshal(client.data, &notification)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if notification.PackID != "custom_pack" || notification.SourceIdentity != "com.example.stickers" {
		t.Errorf("Expected notification for custom_pack, but got %+v", notification)
	}
}
