package internal

// Sticker canvas requirements. Full stickers are square with a fixed edge,
// tray icons use a smaller fixed edge.
const (
	StickerImageSize = 512
	TrayImageSize    = 96

	AssetContentType = "image/webp"
	AssetFileSuffix  = ".webp"

	TrayImageFileName = "tray_icon.webp"
)

// ImageBuffer is a decoded image in a fixed RGBA pixel format, row-major,
// four bytes per pixel.
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// AssetCodec encodes and decodes sticker assets. The implementation lives
// outside this module; the daemon only depends on this contract.
type AssetCodec interface {
	Decode(data []byte) (*ImageBuffer, error)
	Encode(buffer *ImageBuffer) ([]byte, error)
	Scale(buffer *ImageBuffer, width, height int) *ImageBuffer
}
