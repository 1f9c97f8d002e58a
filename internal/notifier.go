package internal

import (
	"sync"

	"github.com/colorstickers/stickerd/pkg/broadcast"
	"github.com/rs/zerolog"
)

// WildcardPackID subscribes to change events for every pack.
const WildcardPackID = "*"

// Resource kinds addressed by the query protocol.
const (
	ResourceMetadata     = "metadata"
	ResourceStickers     = "stickers"
	ResourceStickerAsset = "stickers_asset"
)

// PackChange is published after a mutation or repository invalidation. Paths
// lists the query resource paths whose cached responses are now stale.
type PackChange struct {
	PackID string   `json:"pack_id"`
	Paths  []string `json:"paths"`
}

// ChangeNotifier is the process-wide publish point for pack change events.
// Delivery is best effort: the query layer always re-validates against the
// repository, so the only guarantee needed is that the next explicit query
// sees fresh state.
type ChangeNotifier struct {
	Logger zerolog.Logger

	server *broadcast.Server[PackChange]

	watchedMu sync.RWMutex
	watched   map[string]struct{}
}

func NewChangeNotifier(logger zerolog.Logger) *ChangeNotifier {
	return &ChangeNotifier{
		Logger:  logger,
		server:  broadcast.NewServer[PackChange](),
		watched: make(map[string]struct{}),
	}
}

// RegisterWatch records that a client has read the given resource path and
// should be told when it changes. Metadata queries register themselves here.
func (cn *ChangeNotifier) RegisterWatch(path string) {
	cn.watchedMu.Lock()
	cn.watched[path] = struct{}{}
	cn.watchedMu.Unlock()
}

// WatchedPaths returns the currently registered resource paths.
func (cn *ChangeNotifier) WatchedPaths() []string {
	cn.watchedMu.RLock()
	defer cn.watchedMu.RUnlock()

	paths := make([]string, 0, len(cn.watched))
	for path := range cn.watched {
		paths = append(paths, path)
	}

	return paths
}

// Publish broadcasts a change event for one pack identifier. Paths carries
// only the stale resource paths a client actually registered a watch for;
// a path nobody has read does not need invalidating.
func (cn *ChangeNotifier) Publish(packID string) {
	candidates := []string{
		ResourceMetadata,
		ResourceMetadata + "/" + packID,
		ResourceStickers + "/" + packID,
	}

	cn.watchedMu.RLock()

	paths := make([]string, 0, len(candidates))

	for _, path := range candidates {
		if _, ok := cn.watched[path]; ok {
			paths = append(paths, path)
		}
	}

	cn.watchedMu.RUnlock()

	change := PackChange{
		PackID: packID,
		Paths:  paths,
	}

	cn.Logger.Debug().
		Str("identifier", packID).
		Msg("Publishing pack change")

	cn.server.Publish(change)
}

// Subscribe returns a channel receiving change events for the given pack
// identifier, or for all packs when key is WildcardPackID. Cancel releases
// the subscription.
func (cn *ChangeNotifier) Subscribe(key string) (events <-chan PackChange, cancel func()) {
	source := cn.server.Subscribe()

	if key == WildcardPackID {
		return source, func() { cn.server.Unsubscribe(source) }
	}

	filtered := make(chan PackChange)

	done := make(chan struct{})

	go func() {
		defer close(filtered)

		for {
			select {
			case change, ok := <-source:
				if !ok {
					return
				}

				if change.PackID != key {
					continue
				}

				select {
				case filtered <- change:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	return filtered, func() {
		close(done)
		cn.server.Unsubscribe(source)
	}
}

func (cn *ChangeNotifier) Close() {
	cn.server.Close()
}
