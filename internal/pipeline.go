package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/colorstickers/stickerd/pkg/lockset"
	"github.com/rs/zerolog"
)

// MutationState tracks how far a pipeline run progressed.
type MutationState int32

const (
	StateResolving MutationState = iota
	StateCopying
	StateManifestUpdating
	StatePersisted
	StateTrayUpdating
	StateInvalidated
	StateHostNotified
	StateSucceeded
	StateFailed
)

func (s MutationState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateCopying:
		return "copying"
	case StateManifestUpdating:
		return "manifest_updating"
	case StatePersisted:
		return "persisted"
	case StateTrayUpdating:
		return "tray_updating"
	case StateInvalidated:
		return "invalidated"
	case StateHostNotified:
		return "host_notified"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HostNotifier delivers the one-way "pack changed" record to the host
// process. Failures are the caller's to log, never to propagate.
type HostNotifier interface {
	NotifyPackChanged(ctx context.Context, pack *StickerPack) error
}

// AddStickerRequest promotes one pending sticker into an existing pack.
type AddStickerRequest struct {
	PackID  string
	Pending *PendingSticker

	// RegenerateTray makes the new sticker the pack's representative icon.
	RegenerateTray bool

	// NotifyHost additionally fires the one-way host notification once the
	// mutation has been published.
	NotifyHost bool
}

// AddStickerResult is the terminal outcome of one pipeline run.
type AddStickerResult struct {
	PackID   string
	FileName string
	State    MutationState
	Err      error

	// Bytes of the newly copied sticker, carried forward for the optional
	// tray regeneration step.
	trayBytes []byte
}

// MutationPipeline orchestrates sticker appends. Steps are strictly ordered;
// a failure aborts all later steps and leaves on-disk state as of the last
// completed step. Runs against the same pack are serialized through the
// resolve-to-persist window; runs against different packs proceed in
// parallel.
type MutationPipeline struct {
	Logger zerolog.Logger

	store      *AssetStore
	repository *PackRepository
	notifier   *ChangeNotifier
	pending    *PendingStore

	codec AssetCodec
	host  HostNotifier

	packLocks *lockset.LockSet
}

func NewMutationPipeline(
	logger zerolog.Logger,
	store *AssetStore,
	repository *PackRepository,
	notifier *ChangeNotifier,
	pending *PendingStore,
	codec AssetCodec,
	host HostNotifier,
) *MutationPipeline {
	return &MutationPipeline{
		Logger:     logger,
		store:      store,
		repository: repository,
		notifier:   notifier,
		pending:    pending,
		codec:      codec,
		host:       host,
		packLocks:  lockset.NewLockSet(),
	}
}

// AddStickerToPack runs the pipeline on its own goroutine and delivers the
// terminal result on the returned channel.
func (mp *MutationPipeline) AddStickerToPack(ctx context.Context, request AddStickerRequest) <-chan AddStickerResult {
	results := make(chan AddStickerResult, 1)

	go func() {
		result := mp.run(ctx, request)

		results <- result
		close(results)
	}()

	return results
}

func (mp *MutationPipeline) run(ctx context.Context, request AddStickerRequest) AddStickerResult {
	result := mp.mutate(ctx, request)

	if result.Err != nil {
		stickerdMutationCount.WithLabelValues("failed").Inc()

		mp.Logger.Error().
			Err(result.Err).
			Str("identifier", request.PackID).
			Str("state", result.State.String()).
			Msg("Failed to add sticker to pack")

		result.State = StateFailed

		return result
	}

	// Step 5: tray regeneration is non-fatal, the sticker is already added.
	if request.RegenerateTray {
		result.State = StateTrayUpdating

		err := mp.regenerateTray(request.PackID, result.trayBytes)
		if err != nil {
			mp.Logger.Warn().
				Err(err).
				Str("identifier", request.PackID).
				Msg("Failed to regenerate tray icon")
		}
	}

	// Step 6: drop the cache before anything can observe stale state, then
	// publish the change event.
	mp.repository.Invalidate()
	mp.notifier.Publish(request.PackID)

	result.State = StateInvalidated

	// Step 7: fire-and-forget host notification.
	if request.NotifyHost {
		result.State = StateHostNotified

		mp.notifyHost(ctx, request.PackID)
	}

	stickerdMutationCount.WithLabelValues("succeeded").Inc()

	result.State = StateSucceeded

	return result
}

// mutate performs steps 1-4 under the per-pack lock: resolve, copy, manifest
// update, persist.
func (mp *MutationPipeline) mutate(ctx context.Context, request AddStickerRequest) AddStickerResult {
	result := AddStickerResult{
		PackID: request.PackID,
		State:  StateResolving,
	}

	if request.Pending == nil {
		result.Err = ErrSourceMissing

		return result
	}

	mp.packLocks.Lock(request.PackID)
	defer mp.packLocks.Unlock(request.PackID)

	// Step 1: resolve the target manifest from the writable store. The
	// on-disk manifest is the authority under the pack lock; the cached view
	// may predate a mutation that has persisted but not yet invalidated.
	pack, err := mp.resolvePack(request.PackID)
	if err != nil {
		result.Err = err

		return result
	}

	// Step 2: read the pending bytes before touching the pack directory.
	data, err := mp.pending.ReadBytes(request.Pending.FileName)
	if err != nil {
		result.Err = fmt.Errorf("%w: %s", ErrSourceMissing, request.Pending.FileName)

		return result
	}

	result.State = StateCopying
	result.FileName = generateStickerFileName("sticker")
	result.trayBytes = data

	err = mp.store.WriteAsset(request.PackID, result.FileName, data)
	if err != nil {
		result.Err = err

		return result
	}

	// Step 3: prepend the new sticker, it becomes the most prominent one.
	result.State = StateManifestUpdating

	sticker := &Sticker{
		ImageFile:         result.FileName,
		Emojis:            append([]string(nil), request.Pending.Emojis...),
		AccessibilityText: request.Pending.AccessibilityText,
		Size:              int64(len(data)),
	}

	if len(sticker.Emojis) == 0 {
		sticker.Emojis = []string{PlaceholderEmoji}
	}

	pack.SetStickers(append([]*Sticker{sticker}, pack.Stickers...))

	// Step 4: persist. Failure here orphans the copied asset file, which a
	// later reconciliation pass re-adopts.
	err = mp.store.WriteManifest(request.PackID, pack)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrPersistFailed, err)

		return result
	}

	result.State = StatePersisted

	return result
}

// resolvePack reads the target manifest from the writable store. Bundled
// packs live outside it and are read-only, so an identifier with no store
// manifest is not mutable.
func (mp *MutationPipeline) resolvePack(packID string) (*StickerPack, error) {
	pack, err := mp.store.ReadManifest(packID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, packID)
	}

	return pack, nil
}

// regenerateTray downscales the new sticker's bytes to the tray dimensions
// and overwrites the pack's tray asset.
func (mp *MutationPipeline) regenerateTray(packID string, data []byte) error {
	if mp.codec == nil {
		return ErrCodecMissing
	}

	pack, err := mp.store.ReadManifest(packID)
	if err != nil {
		return err
	}

	buffer, err := mp.codec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode sticker for tray icon: %w", err)
	}

	scaled := mp.codec.Scale(buffer, TrayImageSize, TrayImageSize)

	encoded, err := mp.codec.Encode(scaled)
	if err != nil {
		return fmt.Errorf("failed to encode tray icon: %w", err)
	}

	return mp.store.WriteAsset(packID, pack.TrayImageFile, encoded)
}

func (mp *MutationPipeline) notifyHost(ctx context.Context, packID string) {
	if mp.host == nil {
		return
	}

	pack, err := mp.repository.FindPack(packID)
	if err != nil {
		mp.Logger.Warn().
			Str("identifier", packID).
			Msg("Could not find pack for host notification")

		return
	}

	go func() {
		err := mp.host.NotifyPackChanged(ctx, pack)
		if err != nil && !errors.Is(err, context.Canceled) {
			mp.Logger.Warn().
				Err(err).
				Str("identifier", packID).
				Msg("Failed to notify host of pack change")
		}
	}()
}
