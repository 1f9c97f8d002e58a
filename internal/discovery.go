package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

type PackOrigin int

const (
	OriginBundled PackOrigin = iota
	OriginGenerated
)

func (o PackOrigin) String() string {
	switch o {
	case OriginBundled:
		return "bundled"
	case OriginGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// Discovery is one tagged result from a pack source: a parsed pack, or the
// reason a directory could not be loaded.
type Discovery struct {
	Origin PackOrigin
	Pack   *StickerPack
	Path   string
	Err    error
}

// PackSource enumerates packs from one origin.
type PackSource interface {
	Discover() []Discovery
}

// BundledSource reads the read-only bundled pack set described by a
// contents.json document. Asset files live in one subdirectory per pack.
type BundledSource struct {
	Logger zerolog.Logger

	root string
}

func NewBundledSource(root string, logger zerolog.Logger) *BundledSource {
	return &BundledSource{
		Logger: logger,
		root:   root,
	}
}

type contentsDocument struct {
	AndroidPlayStoreLink string                `json:"android_play_store_link"`
	IOSAppStoreLink      string                `json:"ios_app_store_link"`
	StickerPacks         []jsoniter.RawMessage `json:"sticker_packs"`
}

func (bs *BundledSource) Discover() []Discovery {
	if bs.root == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(bs.root, ContentsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			// A missing contents document just means no bundled packs.
			return nil
		}

		return []Discovery{{Origin: OriginBundled, Path: bs.root, Err: fmt.Errorf("%w: %v", ErrIOFailure, err)}}
	}

	var contents contentsDocument

	err = json.Unmarshal(data, &contents)
	if err != nil {
		return []Discovery{{Origin: OriginBundled, Path: bs.root, Err: fmt.Errorf("%w: %v", ErrMalformedManifest, err)}}
	}

	discoveries := make([]Discovery, 0, len(contents.StickerPacks))

	for _, raw := range contents.StickerPacks {
		pack, err := ParseStickerPack(raw)
		if err != nil {
			discoveries = append(discoveries, Discovery{Origin: OriginBundled, Path: bs.root, Err: err})

			continue
		}

		pack.directory = filepath.Join(bs.root, pack.Identifier)
		pack.AndroidPlayStoreLink = contents.AndroidPlayStoreLink
		pack.IOSAppStoreLink = contents.IOSAppStoreLink

		pack.SetStickers(bs.loadStickerSizes(pack))

		discoveries = append(discoveries, Discovery{Origin: OriginBundled, Pack: pack, Path: pack.directory})
	}

	return discoveries
}

// loadStickerSizes stats each listed asset, silently excluding stickers
// whose file is missing.
func (bs *BundledSource) loadStickerSizes(pack *StickerPack) []*Sticker {
	surviving := make([]*Sticker, 0, len(pack.Stickers))

	for _, sticker := range pack.Stickers {
		info, err := os.Stat(filepath.Join(pack.directory, sticker.ImageFile))
		if err != nil {
			bs.Logger.Debug().
				Str("identifier", pack.Identifier).
				Str("file", sticker.ImageFile).
				Msg("Excluding bundled sticker with missing file")

			continue
		}

		sticker.Size = info.Size()
		surviving = append(surviving, sticker)
	}

	return surviving
}

// GeneratedSource scans the asset store for dynamically generated pack
// directories, recognized by a configured name prefix.
type GeneratedSource struct {
	Logger zerolog.Logger

	store    *AssetStore
	prefixes []string
}

func NewGeneratedSource(store *AssetStore, prefixes []string, logger zerolog.Logger) *GeneratedSource {
	return &GeneratedSource{
		Logger:   logger,
		store:    store,
		prefixes: prefixes,
	}
}

func (gs *GeneratedSource) matches(name string) bool {
	for _, prefix := range gs.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

func (gs *GeneratedSource) Discover() []Discovery {
	directories, err := gs.store.ListPackDirectories()
	if err != nil {
		return []Discovery{{Origin: OriginGenerated, Path: gs.store.Root(), Err: err}}
	}

	discoveries := make([]Discovery, 0, len(directories))

	for _, name := range directories {
		if !gs.matches(name) {
			continue
		}

		path := gs.store.PackDirectory(name)

		pack, err := gs.store.ReadManifest(name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Not a pack directory at all.
				continue
			}

			discoveries = append(discoveries, Discovery{Origin: OriginGenerated, Path: path, Err: err})

			continue
		}

		pack.SetStickers(gs.crossCheckStickers(pack))

		discoveries = append(discoveries, Discovery{Origin: OriginGenerated, Pack: pack, Path: path})
	}

	return discoveries
}

// crossCheckStickers reconciles the manifest's asset list against the files
// actually present: listed stickers with a missing file are excluded, present
// but unlisted asset files are adopted with placeholder metadata. Orphans
// from a failed mutation are re-adopted here, never deleted.
func (gs *GeneratedSource) crossCheckStickers(pack *StickerPack) []*Sticker {
	surviving := make([]*Sticker, 0, len(pack.Stickers))
	listed := make(map[string]struct{}, len(pack.Stickers))

	for _, sticker := range pack.Stickers {
		listed[sticker.ImageFile] = struct{}{}

		size, err := gs.store.AssetSize(pack.Identifier, sticker.ImageFile)
		if err != nil {
			gs.Logger.Debug().
				Str("identifier", pack.Identifier).
				Str("file", sticker.ImageFile).
				Msg("Excluding sticker with missing file")

			continue
		}

		sticker.Size = size
		surviving = append(surviving, sticker)
	}

	entries, err := os.ReadDir(pack.directory)
	if err != nil {
		return surviving
	}

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() || !strings.HasSuffix(name, AssetFileSuffix) || name == pack.TrayImageFile {
			continue
		}

		if _, ok := listed[name]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		surviving = append(surviving, &Sticker{
			ImageFile:         name,
			Emojis:            []string{PlaceholderEmoji},
			AccessibilityText: PlaceholderAccessibilityText,
			Size:              info.Size(),
		})
	}

	return surviving
}

// Reconcile merges discoveries from all sources into one canonical ordered
// list. Bundled packs keep their position ahead of generated packs; a
// duplicate identifier replaces the earlier entry in place, last write wins
// by scan order. Packs without a single surviving sticker are dropped.
func Reconcile(logger zerolog.Logger, discoveries []Discovery) []*StickerPack {
	packs := make([]*StickerPack, 0, len(discoveries))
	position := make(map[string]int, len(discoveries))

	for _, discovery := range discoveries {
		if discovery.Err != nil {
			logger.Warn().
				Err(discovery.Err).
				Str("origin", discovery.Origin.String()).
				Str("path", discovery.Path).
				Msg("Skipping invalid pack")

			continue
		}

		pack := discovery.Pack

		if len(pack.Stickers) < 1 {
			logger.Debug().
				Str("identifier", pack.Identifier).
				Msg("Dropping pack with no surviving stickers")

			continue
		}

		if index, ok := position[pack.Identifier]; ok {
			packs[index] = pack

			continue
		}

		position[pack.Identifier] = len(packs)
		packs = append(packs, pack)
	}

	return packs
}
