package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	CustomStickersDirectory = "custom_stickers"
	CustomStickersInfoFile  = "custom_stickers_info.json"
)

// Source kinds for a pending sticker.
const (
	SourceKindImage = 1
	SourceKindVideo = 2
)

// PendingSticker is a finished asset sitting in the holding area: the editing
// tooling created it, and it stays here until a caller promotes it into a
// pack or deletes it.
type PendingSticker struct {
	FileName          string   `json:"image_file"`
	Emojis            []string `json:"emojis"`
	AccessibilityText string   `json:"accessibility_text,omitempty"`
	CreatedAt         int64    `json:"creation_timestamp"`
	Size              int64    `json:"size"`
	SourceKind        int      `json:"source_type"`
}

// PendingStore persists pending stickers in a single holding directory with
// a JSON index document.
type PendingStore struct {
	Logger zerolog.Logger

	root string
}

func NewPendingStore(dataDirectory string, logger zerolog.Logger) *PendingStore {
	return &PendingStore{
		Logger: logger,
		root:   filepath.Join(dataDirectory, CustomStickersDirectory),
	}
}

func (ps *PendingStore) Root() string {
	return ps.root
}

// Save materializes a pending sticker's bytes and records it in the index.
// The sticker's Size and CreatedAt are set here.
func (ps *PendingStore) Save(sticker *PendingSticker, data []byte) error {
	if filepath.Base(sticker.FileName) != sticker.FileName {
		return fmt.Errorf("%w: invalid pending file name %q", ErrIOFailure, sticker.FileName)
	}

	err := os.MkdirAll(ps.root, PermissionsDefault)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	err = os.WriteFile(filepath.Join(ps.root, sticker.FileName), data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	sticker.Size = int64(len(data))

	if sticker.CreatedAt == 0 {
		sticker.CreatedAt = time.Now().UnixMilli()
	}

	stickers, err := ps.List()
	if err != nil {
		return err
	}

	replaced := false

	for i, existing := range stickers {
		if existing.FileName == sticker.FileName {
			stickers[i] = sticker
			replaced = true

			break
		}
	}

	if !replaced {
		stickers = append(stickers, sticker)
	}

	return ps.writeIndex(stickers)
}

// List returns all pending stickers recorded in the index.
func (ps *PendingStore) List() ([]*PendingSticker, error) {
	data, err := os.ReadFile(filepath.Join(ps.root, CustomStickersInfoFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	var stickers []*PendingSticker

	err = json.Unmarshal(data, &stickers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	return stickers, nil
}

// ReadBytes returns the backing bytes of one pending sticker.
func (ps *PendingStore) ReadBytes(fileName string) ([]byte, error) {
	return ReadFileAt(ps.root, fileName)
}

// Delete removes a pending sticker's file and index entry.
func (ps *PendingStore) Delete(fileName string) error {
	stickers, err := ps.List()
	if err != nil {
		return err
	}

	remaining := make([]*PendingSticker, 0, len(stickers))

	for _, sticker := range stickers {
		if sticker.FileName != fileName {
			remaining = append(remaining, sticker)
		}
	}

	err = os.Remove(filepath.Join(ps.root, fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return ps.writeIndex(remaining)
}

func (ps *PendingStore) writeIndex(stickers []*PendingSticker) error {
	data, err := json.MarshalIndent(stickers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pending sticker index: %w", err)
	}

	target := filepath.Join(ps.root, CustomStickersInfoFile)
	temp := target + ".tmp"

	err = os.WriteFile(temp, data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	err = os.Rename(temp, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return nil
}
