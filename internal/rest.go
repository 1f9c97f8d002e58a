package internal

import (
	"time"

	"github.com/fasthttp/router"
	gotils_strconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

// StickerPackRow is the host-facing metadata row. Field order and names are
// part of the protocol; the host caches responses and expects them stable.
type StickerPackRow struct {
	Identifier              string `json:"sticker_pack_identifier"`
	Name                    string `json:"sticker_pack_name"`
	Publisher               string `json:"sticker_pack_publisher"`
	TrayImageFile           string `json:"sticker_pack_icon"`
	AndroidPlayStoreLink    string `json:"android_play_store_link"`
	IOSAppDownloadLink      string `json:"ios_app_download_link"`
	PublisherEmail          string `json:"sticker_pack_publisher_email"`
	PublisherWebsite        string `json:"sticker_pack_publisher_website"`
	PrivacyPolicyWebsite    string `json:"sticker_pack_privacy_policy_website"`
	LicenseAgreementWebsite string `json:"sticker_pack_license_agreement_website"`
	ImageDataVersion        string `json:"image_data_version"`
	AvoidCache              int    `json:"whatsapp_will_not_cache_stickers"`
	AnimatedStickerPack     int    `json:"animated_sticker_pack"`
}

// StickerRow is the host-facing sticker row: file name, comma-joined emoji
// tags and accessibility text.
type StickerRow struct {
	FileName          string `json:"sticker_file_name"`
	Emojis            string `json:"sticker_emoji"`
	AccessibilityText string `json:"sticker_accessibility_text"`
}

// BaseRestResponse is the envelope for the daemon-facing management routes.
// The host protocol routes serve bare rows instead.
type BaseRestResponse struct {
	Ok    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type StatusEndpointResponse struct {
	Version  string `json:"version"`
	Uptime   int    `json:"uptime"`
	Packs    int    `json:"packs"`
	Stickers int    `json:"stickers"`
	Pending  int    `json:"pending"`
}

func newStickerPackRow(pack *StickerPack) StickerPackRow {
	return StickerPackRow{
		Identifier:              pack.Identifier,
		Name:                    pack.Name,
		Publisher:               pack.Publisher,
		TrayImageFile:           pack.TrayImageFile,
		AndroidPlayStoreLink:    pack.AndroidPlayStoreLink,
		IOSAppDownloadLink:      pack.IOSAppStoreLink,
		PublisherEmail:          pack.PublisherEmail,
		PublisherWebsite:        pack.PublisherWebsite,
		PrivacyPolicyWebsite:    pack.PrivacyPolicyWebsite,
		LicenseAgreementWebsite: pack.LicenseAgreementWebsite,
		ImageDataVersion:        pack.ImageDataVersion,
		AvoidCache:              boolToInt(pack.AvoidCache),
		AnimatedStickerPack:     boolToInt(pack.AnimatedStickerPack),
	}
}

// NewRestRouter returns the request handler serving both the host protocol
// and the management routes.
func (sd *Stickerd) NewRestRouter() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/api/metadata", sd.MetadataEndpoint)
	r.GET("/api/metadata/{identifier}", sd.SingleMetadataEndpoint)
	r.GET("/api/stickers/{identifier}", sd.StickersEndpoint)
	r.GET("/api/stickers_asset/{identifier}/{file}", sd.StickerAssetEndpoint)

	r.GET("/api/status", sd.StatusEndpoint)
	r.GET("/api/whitelist/{identifier}", sd.WhitelistEndpoint)

	return r.Handler
}

// HandleRequest handles any incoming HTTP requests.
func (sd *Stickerd) HandleRequest(ctx *fasthttp.RequestCtx) {
	sd.QueriesInflight.Inc()

	defer func() {
		sd.QueriesInflight.Dec()

		sd.Logger.Info().Msgf("%s %s %s %d",
			ctx.RemoteAddr(),
			gotils_strconv.B2S(ctx.Request.Header.Method()),
			gotils_strconv.B2S(ctx.Request.URI().Path()),
			ctx.Response.StatusCode())
	}()

	sd.RouterHandler(ctx)
}

func writeJSON(ctx *fasthttp.RequestCtx, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetContentType("application/json;charset=UTF-8")
	ctx.Write(data)
}

// MetadataEndpoint lists every pack in the reconciled view.
func (sd *Stickerd) MetadataEndpoint(ctx *fasthttp.RequestCtx) {
	stickerdQueryCount.WithLabelValues(ResourceMetadata).Inc()

	sd.Notifier.RegisterWatch(ResourceMetadata)

	packs := sd.Repository.ListPacks()

	rows := make([]StickerPackRow, 0, len(packs))
	for _, pack := range packs {
		rows = append(rows, newStickerPackRow(pack))
	}

	writeJSON(ctx, rows)
}

// SingleMetadataEndpoint describes one pack: the same row shape, zero or one
// row. An unknown identifier yields an empty set, not an error.
func (sd *Stickerd) SingleMetadataEndpoint(ctx *fasthttp.RequestCtx) {
	stickerdQueryCount.WithLabelValues(ResourceMetadata).Inc()

	identifier := ctx.UserValue("identifier").(string)

	sd.Notifier.RegisterWatch(ResourceMetadata + "/" + identifier)

	rows := make([]StickerPackRow, 0, 1)

	pack, err := sd.Repository.FindPack(identifier)
	if err == nil {
		rows = append(rows, newStickerPackRow(pack))
	}

	writeJSON(ctx, rows)
}

// StickersEndpoint lists one pack's stickers, empty if the pack is unknown.
func (sd *Stickerd) StickersEndpoint(ctx *fasthttp.RequestCtx) {
	stickerdQueryCount.WithLabelValues(ResourceStickers).Inc()

	identifier := ctx.UserValue("identifier").(string)

	sd.Notifier.RegisterWatch(ResourceStickers + "/" + identifier)

	rows := make([]StickerRow, 0)

	pack, err := sd.Repository.FindPack(identifier)
	if err == nil {
		for _, sticker := range pack.Stickers {
			rows = append(rows, StickerRow{
				FileName:          sticker.ImageFile,
				Emojis:            joinEmojis(sticker.Emojis),
				AccessibilityText: sticker.AccessibilityText,
			})
		}
	}

	writeJSON(ctx, rows)
}

// StickerAssetEndpoint serves raw asset bytes. Only files listed in the
// reconciled view are servable; a file on disk that reconciliation excluded
// is a 404.
func (sd *Stickerd) StickerAssetEndpoint(ctx *fasthttp.RequestCtx) {
	stickerdQueryCount.WithLabelValues(ResourceStickerAsset).Inc()

	identifier := ctx.UserValue("identifier").(string)
	fileName := ctx.UserValue("file").(string)

	pack, err := sd.Repository.FindPack(identifier)
	if err != nil || !pack.HasFile(fileName) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)

		return
	}

	data, err := ReadFileAt(pack.Directory(), fileName)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)

		return
	}

	stickerdAssetBytesServed.Add(float64(len(data)))

	ctx.SetContentType(AssetContentType)
	ctx.Write(data)
}

func (sd *Stickerd) StatusEndpoint(ctx *fasthttp.RequestCtx) {
	packs := sd.Repository.ListPacks()

	stickers := 0
	for _, pack := range packs {
		stickers += len(pack.Stickers)
	}

	pending, _ := sd.Pending.List()

	writeJSON(ctx, BaseRestResponse{
		Ok: true,
		Data: StatusEndpointResponse{
			Version:  VERSION,
			Uptime:   int(time.Since(sd.StartTime).Seconds()),
			Packs:    len(packs),
			Stickers: stickers,
			Pending:  len(pending),
		},
	})
}

// WhitelistEndpoint reports, live from the host, whether a pack has been
// registered there. Never cached, never persisted.
func (sd *Stickerd) WhitelistEndpoint(ctx *fasthttp.RequestCtx) {
	identifier := ctx.UserValue("identifier").(string)

	writeJSON(ctx, BaseRestResponse{
		Ok: true,
		Data: map[string]bool{
			"whitelisted": sd.Whitelist.IsWhitelisted(ctx, identifier),
		},
	})
}
