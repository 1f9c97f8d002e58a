package internal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *AssetStore {
	t.Helper()

	return NewAssetStore(t.TempDir(), zerolog.Nop())
}

func TestManifestRoundTrip(t *testing.T) {
	store := newTestStore(t)

	pack := &StickerPack{
		Identifier:    "custom_pack",
		Name:          "My Pack",
		Publisher:     "Someone",
		TrayImageFile: TrayImageFileName,
	}
	pack.SetStickers([]*Sticker{
		{ImageFile: "sticker_1.webp", Emojis: []string{"😀"}},
	})

	err := store.WriteManifest("custom_pack", pack)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	read, err := store.ReadManifest("custom_pack")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if read.Name != "My Pack" || len(read.Stickers) != 1 {
		t.Errorf("Expected round trip to preserve the pack, but got %+v", read)
	}

	if read.Directory() != store.PackDirectory("custom_pack") {
		t.Errorf("Expected directory %s, but got %s", store.PackDirectory("custom_pack"), read.Directory())
	}
}

func TestReadManifestNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadManifest("custom_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}

func TestWriteAsset(t *testing.T) {
	store := newTestStore(t)

	data := []byte("webp bytes")

	err := store.WriteAsset("custom_pack", "sticker_1.webp", data)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	read, err := store.ReadAsset("custom_pack", "sticker_1.webp")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if !bytes.Equal(read, data) {
		t.Errorf("Expected %v, but got %v", data, read)
	}

	size, err := store.AssetSize("custom_pack", "sticker_1.webp")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if size != int64(len(data)) {
		t.Errorf("Expected size %d, but got %d", len(data), size)
	}
}

func TestWriteAssetRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	err := store.WriteAsset("custom_pack", "../escape.webp", []byte("x"))
	if !errors.Is(err, ErrIOFailure) {
		t.Errorf("Expected ErrIOFailure, but got %v", err)
	}
}

func TestAssetSizeNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AssetSize("custom_pack", "missing.webp")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}

func TestListPackDirectories(t *testing.T) {
	store := newTestStore(t)

	err := store.WriteAsset("custom_a", "sticker_1.webp", []byte("x"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	err = store.WriteAsset("custom_b", "sticker_1.webp", []byte("x"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	directories, err := store.ListPackDirectories()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(directories) != 2 {
		t.Errorf("Expected 2 directories, but got %v", directories)
	}
}

func TestReadFileAtRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)

	_, err := ReadFileAt(store.PackDirectory("custom_pack"), "../../etc/passwd")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}
