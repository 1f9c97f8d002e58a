package internal

import (
	"fmt"

	"github.com/rs/zerolog"
)

// GeneratedAsset is one encoded sticker handed over by the generation
// collaborator for inclusion in a new pack.
type GeneratedAsset struct {
	FileName          string
	Emojis            []string
	AccessibilityText string
	Data              []byte
}

// PackGenerator creates fully populated generated packs: asset files, a tray
// icon derived from the first sticker, and the manifest document.
type PackGenerator struct {
	Logger zerolog.Logger

	store      *AssetStore
	repository *PackRepository
	codec      AssetCodec
}

func NewPackGenerator(store *AssetStore, repository *PackRepository, codec AssetCodec, logger zerolog.Logger) *PackGenerator {
	return &PackGenerator{
		Logger:     logger,
		store:      store,
		repository: repository,
		codec:      codec,
	}
}

// CreatePack materializes a new pack directory. The identifier becomes the
// directory name; there is no separate ID generation.
func (pg *PackGenerator) CreatePack(identifier, name, publisher string, assets []GeneratedAsset) (*StickerPack, error) {
	if identifier == "" || name == "" || publisher == "" {
		return nil, fmt.Errorf("%w: pack requires identifier, name and publisher", ErrMalformedManifest)
	}

	if len(assets) < 1 {
		return nil, fmt.Errorf("%w: pack requires at least one sticker", ErrMalformedManifest)
	}

	stickers := make([]*Sticker, 0, len(assets))

	for _, asset := range assets {
		err := pg.store.WriteAsset(identifier, asset.FileName, asset.Data)
		if err != nil {
			return nil, err
		}

		emojis := asset.Emojis
		if len(emojis) == 0 {
			emojis = []string{PlaceholderEmoji}
		}

		stickers = append(stickers, &Sticker{
			ImageFile:         asset.FileName,
			Emojis:            emojis,
			AccessibilityText: replaceIfEmpty(asset.AccessibilityText, PlaceholderAccessibilityText),
			Size:              int64(len(asset.Data)),
		})
	}

	err := pg.writeTrayIcon(identifier, assets[0].Data)
	if err != nil {
		return nil, err
	}

	pack := &StickerPack{
		Identifier:       identifier,
		Name:             name,
		Publisher:        publisher,
		TrayImageFile:    TrayImageFileName,
		ImageDataVersion: DefaultImageDataVersion,
	}

	pack.SetStickers(stickers)
	pack.directory = pg.store.PackDirectory(identifier)

	err = pg.store.WriteManifest(identifier, pack)
	if err != nil {
		return nil, err
	}

	pg.repository.Invalidate()

	pg.Logger.Info().
		Str("identifier", identifier).
		Int("stickers", len(stickers)).
		Msg("Created sticker pack")

	return pack, nil
}

// writeTrayIcon derives the pack's tray asset from the first sticker. With
// no codec available the sticker bytes are used unscaled.
func (pg *PackGenerator) writeTrayIcon(identifier string, data []byte) error {
	if pg.codec != nil {
		buffer, err := pg.codec.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to decode sticker for tray icon: %w", err)
		}

		scaled := pg.codec.Scale(buffer, TrayImageSize, TrayImageSize)

		data, err = pg.codec.Encode(scaled)
		if err != nil {
			return fmt.Errorf("failed to encode tray icon: %w", err)
		}
	} else {
		pg.Logger.Warn().
			Str("identifier", identifier).
			Msg("No asset codec configured, writing tray icon unscaled")
	}

	return pg.store.WriteAsset(identifier, TrayImageFileName, data)
}
