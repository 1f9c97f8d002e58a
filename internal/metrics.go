package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	stickerdQueryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerd_query_count",
			Help: "Host protocol queries served, by resource kind",
		},
		[]string{"resource"},
	)

	stickerdMutationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerd_mutation_count",
			Help: "Sticker append pipeline runs, by outcome",
		},
		[]string{"result"},
	)

	stickerdCacheRebuildCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stickerd_cache_rebuild_count",
			Help: "Repository view recomputations",
		},
	)

	stickerdAssetBytesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stickerd_asset_bytes_served",
			Help: "Raw sticker asset bytes served to the host",
		},
	)

	stickerdPackCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stickerd_pack_count",
			Help: "Packs in the reconciled repository view",
		},
	)

	stickerdStickerCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stickerd_sticker_count",
			Help: "Stickers across all packs in the reconciled view",
		},
	)

	stickerdPendingCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stickerd_pending_count",
			Help: "Stickers waiting in the holding area",
		},
	)
)
