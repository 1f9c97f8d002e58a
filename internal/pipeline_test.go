package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type failingCodec struct{}

func (failingCodec) Decode(data []byte) (*ImageBuffer, error) {
	return nil, errors.New("not an image")
}

func (failingCodec) Encode(buffer *ImageBuffer) ([]byte, error) {
	return nil, errors.New("not an image")
}

func (failingCodec) Scale(buffer *ImageBuffer, width, height int) *ImageBuffer {
	return buffer
}

type pipelineFixture struct {
	store      *AssetStore
	repository *PackRepository
	notifier   *ChangeNotifier
	pending    *PendingStore
	pipeline   *MutationPipeline
}

func newPipelineFixture(t *testing.T, codec AssetCodec) *pipelineFixture {
	t.Helper()

	dataDirectory := t.TempDir()

	store := NewAssetStore(dataDirectory, zerolog.Nop())
	repository := NewPackRepository(zerolog.Nop(), NewGeneratedSource(store, []string{"custom_"}, zerolog.Nop()))
	notifier := NewChangeNotifier(zerolog.Nop())
	pending := NewPendingStore(dataDirectory, zerolog.Nop())

	pipeline := NewMutationPipeline(zerolog.Nop(), store, repository, notifier, pending, codec, nil)

	t.Cleanup(notifier.Close)

	return &pipelineFixture{
		store:      store,
		repository: repository,
		notifier:   notifier,
		pending:    pending,
		pipeline:   pipeline,
	}
}

func (pf *pipelineFixture) seedPack(t *testing.T, identifier string, stickers, size int) {
	t.Helper()

	packStickers := make([]*Sticker, 0, stickers)

	for i := 0; i < stickers; i++ {
		file := generateStickerFileName("sticker")

		err := pf.store.WriteAsset(identifier, file, bytes.Repeat([]byte{0x57}, size))
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}

		packStickers = append(packStickers, &Sticker{ImageFile: file, Emojis: []string{"😀"}})
	}

	err := pf.store.WriteAsset(identifier, TrayImageFileName, []byte("tray"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	pack := &StickerPack{
		Identifier:    identifier,
		Name:          "Pack " + identifier,
		Publisher:     "Someone",
		TrayImageFile: TrayImageFileName,
	}
	pack.SetStickers(packStickers)

	err = pf.store.WriteManifest(identifier, pack)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
}

func (pf *pipelineFixture) seedPending(t *testing.T, fileName string, size int) *PendingSticker {
	t.Helper()

	sticker := &PendingSticker{
		FileName:   fileName,
		Emojis:     []string{"🎉"},
		SourceKind: SourceKindImage,
	}

	err := pf.pending.Save(sticker, bytes.Repeat([]byte{0x57}, size))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	return sticker
}

func TestAddStickerToPack(t *testing.T) {
	fixture := newPipelineFixture(t, nil)
	fixture.seedPack(t, "custom_pack", 3, 10000)

	pending := fixture.seedPending(t, "pending_1.webp", 5000)

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_pack",
		Pending: pending,
	})

	if result.Err != nil {
		t.Fatalf("Expected no error, but got %v", result.Err)
	}

	if result.State != StateSucceeded {
		t.Errorf("Expected state succeeded, but got %s", result.State)
	}

	pack, err := fixture.repository.FindPack("custom_pack")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(pack.Stickers) != 4 {
		t.Fatalf("Expected 4 stickers, but got %d", len(pack.Stickers))
	}

	if pack.TotalSize() != 35000 {
		t.Errorf("Expected total size 35000, but got %d", pack.TotalSize())
	}

	// The new sticker becomes the most prominent one.
	if pack.Stickers[0].ImageFile != result.FileName {
		t.Errorf("Expected %s first, but got %s", result.FileName, pack.Stickers[0].ImageFile)
	}

	if pack.Stickers[0].Emojis[0] != "🎉" {
		t.Errorf("Expected pending emojis to carry over, but got %v", pack.Stickers[0].Emojis)
	}
}

func TestAddStickerToPackPublishesChange(t *testing.T) {
	fixture := newPipelineFixture(t, nil)
	fixture.seedPack(t, "custom_pack", 1, 100)

	pending := fixture.seedPending(t, "pending_1.webp", 100)

	fixture.notifier.RegisterWatch(ResourceMetadata)
	fixture.notifier.RegisterWatch(ResourceMetadata + "/custom_pack")
	fixture.notifier.RegisterWatch(ResourceStickers + "/custom_pack")

	events, cancel := fixture.notifier.Subscribe("custom_pack")
	defer cancel()

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_pack",
		Pending: pending,
	})

	if result.Err != nil {
		t.Fatalf("Expected no error, but got %v", result.Err)
	}

	change := <-events
	if change.PackID != "custom_pack" {
		t.Errorf("Expected change for custom_pack, but got %s", change.PackID)
	}

	if len(change.Paths) != 3 {
		t.Errorf("Expected 3 stale paths, but got %v", change.Paths)
	}
}

func TestAddStickerToPackUnknownPack(t *testing.T) {
	fixture := newPipelineFixture(t, nil)

	pending := fixture.seedPending(t, "pending_1.webp", 100)

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_missing",
		Pending: pending,
	})

	if !errors.Is(result.Err, ErrPackNotFound) {
		t.Errorf("Expected ErrPackNotFound, but got %v", result.Err)
	}

	if result.State != StateFailed {
		t.Errorf("Expected state failed, but got %s", result.State)
	}
}

func TestAddStickerToPackBundledPackRejected(t *testing.T) {
	fixture := newPipelineFixture(t, nil)

	bundledRoot := t.TempDir()

	err := os.MkdirAll(filepath.Join(bundledRoot, "classic"), PermissionsDefault)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	err = os.WriteFile(filepath.Join(bundledRoot, "classic", "sticker_1.webp"), []byte("webp bytes"), PermissionWrite)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	contents := []byte(`{
		"sticker_packs": [
			{
				"identifier": "classic",
				"name": "Classic",
				"publisher": "Someone",
				"tray_image_file": "tray_icon.webp",
				"stickers": [{"image_file": "sticker_1.webp", "emojis": ["😀"]}]
			}
		]
	}`)

	err = os.WriteFile(filepath.Join(bundledRoot, ContentsFileName), contents, PermissionWrite)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	repository := NewPackRepository(zerolog.Nop(),
		NewBundledSource(bundledRoot, zerolog.Nop()),
		NewGeneratedSource(fixture.store, []string{"custom_"}, zerolog.Nop()))

	pipeline := NewMutationPipeline(zerolog.Nop(), fixture.store, repository, fixture.notifier, fixture.pending, nil, nil)

	pending := fixture.seedPending(t, "pending_1.webp", 100)

	// Bundled packs are read-only: the append must fail loudly rather than
	// persist a fork the pack view never serves.
	result := <-pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "classic",
		Pending: pending,
	})

	if !errors.Is(result.Err, ErrPackNotFound) {
		t.Errorf("Expected ErrPackNotFound, but got %v", result.Err)
	}

	pack, err := repository.FindPack("classic")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(pack.Stickers) != 1 {
		t.Errorf("Expected the bundled pack untouched, but got %d stickers", len(pack.Stickers))
	}
}

func TestAddStickerToPackMissingSource(t *testing.T) {
	fixture := newPipelineFixture(t, nil)
	fixture.seedPack(t, "custom_pack", 1, 100)

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_pack",
		Pending: &PendingSticker{FileName: "never_saved.webp"},
	})

	if !errors.Is(result.Err, ErrSourceMissing) {
		t.Errorf("Expected ErrSourceMissing, but got %v", result.Err)
	}

	// Nothing was persisted.
	pack, err := fixture.repository.FindPack("custom_pack")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(pack.Stickers) != 1 {
		t.Errorf("Expected pack untouched, but got %d stickers", len(pack.Stickers))
	}
}

func TestAddStickerToPackNilPending(t *testing.T) {
	fixture := newPipelineFixture(t, nil)
	fixture.seedPack(t, "custom_pack", 1, 100)

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID: "custom_pack",
	})

	if !errors.Is(result.Err, ErrSourceMissing) {
		t.Errorf("Expected ErrSourceMissing, but got %v", result.Err)
	}
}

func TestAddStickerToPackTrayFailureNonFatal(t *testing.T) {
	fixture := newPipelineFixture(t, failingCodec{})
	fixture.seedPack(t, "custom_pack", 1, 100)

	pending := fixture.seedPending(t, "pending_1.webp", 100)

	result := <-fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:         "custom_pack",
		Pending:        pending,
		RegenerateTray: true,
	})

	if result.Err != nil {
		t.Fatalf("Expected no error, but got %v", result.Err)
	}

	if result.State != StateSucceeded {
		t.Errorf("Expected state succeeded, but got %s", result.State)
	}

	pack, err := fixture.repository.FindPack("custom_pack")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(pack.Stickers) != 2 {
		t.Errorf("Expected the sticker to survive the tray failure, but got %d stickers", len(pack.Stickers))
	}
}

func TestAddStickerToPackConcurrent(t *testing.T) {
	fixture := newPipelineFixture(t, nil)
	fixture.seedPack(t, "custom_pack", 1, 100)

	first := fixture.seedPending(t, "pending_1.webp", 100)
	second := fixture.seedPending(t, "pending_2.webp", 200)

	a := fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_pack",
		Pending: first,
	})
	b := fixture.pipeline.AddStickerToPack(context.Background(), AddStickerRequest{
		PackID:  "custom_pack",
		Pending: second,
	})

	resultA := <-a
	resultB := <-b

	if resultA.Err != nil || resultB.Err != nil {
		t.Fatalf("Expected no errors, but got %v and %v", resultA.Err, resultB.Err)
	}

	// Neither append may clobber the other.
	pack, err := fixture.repository.FindPack("custom_pack")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(pack.Stickers) != 3 {
		t.Fatalf("Expected 3 stickers, but got %d", len(pack.Stickers))
	}

	if !pack.HasFile(resultA.FileName) || !pack.HasFile(resultB.FileName) {
		t.Errorf("Expected both %s and %s in the pack", resultA.FileName, resultB.FileName)
	}
}
