package internal

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ManifestFileName = "pack_info.json"
	ContentsFileName = "contents.json"

	// Applied to adopted sticker files that carry no metadata of their own.
	PlaceholderEmoji             = "🎨"
	PlaceholderAccessibilityText = "Custom sticker"

	DefaultImageDataVersion = "1"
)

// Sticker is a single sticker asset: its file within the pack directory,
// 1-3 emoji tags and an accessibility description. Size is set once the
// backing file has been observed on disk and is never serialized.
type Sticker struct {
	ImageFile         string   `json:"image_file"`
	Emojis            []string `json:"emojis"`
	AccessibilityText string   `json:"accessibility_text,omitempty"`

	Size int64 `json:"-"`
}

// StickerPack is the manifest of one pack. The identifier doubles as the
// directory name and is unique across the reconciled repository view.
type StickerPack struct {
	Identifier              string `json:"identifier"`
	Name                    string `json:"name"`
	Publisher               string `json:"publisher"`
	TrayImageFile           string `json:"tray_image_file"`
	PublisherEmail          string `json:"publisher_email,omitempty"`
	PublisherWebsite        string `json:"publisher_website,omitempty"`
	PrivacyPolicyWebsite    string `json:"privacy_policy_website,omitempty"`
	LicenseAgreementWebsite string `json:"license_agreement_website,omitempty"`
	ImageDataVersion        string `json:"image_data_version,omitempty"`
	AvoidCache              bool   `json:"avoid_cache,omitempty"`
	AnimatedStickerPack     bool   `json:"animated_sticker_pack,omitempty"`

	Stickers []*Sticker `json:"stickers"`

	// Store links come from the bundled contents document, not pack_info.json.
	AndroidPlayStoreLink string `json:"-"`
	IOSAppStoreLink      string `json:"-"`

	// Absolute directory holding the pack's asset files, set at discovery.
	directory string
}

// TotalSize is the sum of all sticker sizes. Derived on demand so it can
// never drift from the asset list.
func (sp *StickerPack) TotalSize() (total int64) {
	for _, sticker := range sp.Stickers {
		total += sticker.Size
	}

	return total
}

// SetStickers replaces the pack's asset list wholesale.
func (sp *StickerPack) SetStickers(stickers []*Sticker) {
	sp.Stickers = stickers
}

func (sp *StickerPack) Directory() string {
	return sp.directory
}

// HasFile reports whether fileName is served for this pack: either a listed
// sticker or the tray image. Files on disk but absent here are not servable.
func (sp *StickerPack) HasFile(fileName string) bool {
	if fileName == sp.TrayImageFile {
		return true
	}

	for _, sticker := range sp.Stickers {
		if sticker.ImageFile == fileName {
			return true
		}
	}

	return false
}

// Clone deep-copies the manifest. Mutations work on a clone so the
// repository's published view is never mutated in place.
func (sp *StickerPack) Clone() *StickerPack {
	clone := *sp
	clone.Stickers = make([]*Sticker, len(sp.Stickers))

	for i, sticker := range sp.Stickers {
		copied := *sticker
		copied.Emojis = append([]string(nil), sticker.Emojis...)
		clone.Stickers[i] = &copied
	}

	return &clone
}

// ParseStickerPack decodes a pack_info.json document. A document that does
// not parse or misses a required field rejects the whole pack.
func ParseStickerPack(data []byte) (*StickerPack, error) {
	var pack StickerPack

	err := json.Unmarshal(data, &pack)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	if pack.Identifier == "" || pack.Name == "" || pack.Publisher == "" || pack.TrayImageFile == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformedManifest)
	}

	if pack.ImageDataVersion == "" {
		pack.ImageDataVersion = DefaultImageDataVersion
	}

	for _, sticker := range pack.Stickers {
		if len(sticker.Emojis) == 0 {
			sticker.Emojis = []string{PlaceholderEmoji}
		}
	}

	return &pack, nil
}

// EncodeStickerPack serializes a manifest the way the editing tooling writes
// it: indented, stable field order.
func EncodeStickerPack(pack *StickerPack) ([]byte, error) {
	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pack manifest: %w", err)
	}

	return data, nil
}
