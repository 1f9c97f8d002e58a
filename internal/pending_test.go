package internal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestPendingStore(t *testing.T) *PendingStore {
	t.Helper()

	return NewPendingStore(t.TempDir(), zerolog.Nop())
}

func TestPendingStoreSaveAndList(t *testing.T) {
	store := newTestPendingStore(t)

	sticker := &PendingSticker{
		FileName:          "pending_1.webp",
		Emojis:            []string{"🎉"},
		AccessibilityText: "Party",
		SourceKind:        SourceKindImage,
	}

	data := []byte("webp bytes")

	err := store.Save(sticker, data)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if sticker.Size != int64(len(data)) {
		t.Errorf("Expected size %d, but got %d", len(data), sticker.Size)
	}

	if sticker.CreatedAt == 0 {
		t.Error("Expected creation timestamp to be set")
	}

	stickers, err := store.List()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(stickers) != 1 || stickers[0].FileName != "pending_1.webp" {
		t.Errorf("Expected pending_1.webp listed, but got %+v", stickers)
	}

	read, err := store.ReadBytes("pending_1.webp")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if !bytes.Equal(read, data) {
		t.Errorf("Expected %v, but got %v", data, read)
	}
}

func TestPendingStoreSaveReplacesIndexEntry(t *testing.T) {
	store := newTestPendingStore(t)

	err := store.Save(&PendingSticker{FileName: "pending_1.webp", SourceKind: SourceKindImage}, []byte("one"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	err = store.Save(&PendingSticker{FileName: "pending_1.webp", SourceKind: SourceKindVideo}, []byte("three"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	stickers, err := store.List()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(stickers) != 1 {
		t.Fatalf("Expected 1 index entry, but got %d", len(stickers))
	}

	if stickers[0].SourceKind != SourceKindVideo || stickers[0].Size != 5 {
		t.Errorf("Expected the entry to be replaced, but got %+v", stickers[0])
	}
}

func TestPendingStoreDelete(t *testing.T) {
	store := newTestPendingStore(t)

	err := store.Save(&PendingSticker{FileName: "pending_1.webp", SourceKind: SourceKindImage}, []byte("x"))
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	err = store.Delete("pending_1.webp")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	stickers, err := store.List()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(stickers) != 0 {
		t.Errorf("Expected empty index, but got %+v", stickers)
	}

	_, err = store.ReadBytes("pending_1.webp")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}

func TestPendingStoreListEmpty(t *testing.T) {
	store := newTestPendingStore(t)

	stickers, err := store.List()
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	if len(stickers) != 0 {
		t.Errorf("Expected no pending stickers, but got %+v", stickers)
	}
}

func TestPendingStoreRejectsPathTraversal(t *testing.T) {
	store := newTestPendingStore(t)

	err := store.Save(&PendingSticker{FileName: "../escape.webp"}, []byte("x"))
	if !errors.Is(err, ErrIOFailure) {
		t.Errorf("Expected ErrIOFailure, but got %v", err)
	}
}
