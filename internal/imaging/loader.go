package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of decoded images an ImageCache keeps.
const DefaultCacheSize = 16

// Decoded is a decoded raster together with the format name reported by the
// decoder ("png", "jpeg", "gif", "bmp", "tiff" or "webp").
type Decoded struct {
	Image  image.Image
	Format string
}

// Decode reads a single raster image from r. The format is sniffed from the
// content, not from a file name or declared content type.
func Decode(r io.Reader) (*Decoded, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	return &Decoded{Image: img, Format: format}, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (*Decoded, error) {
	return Decode(bytes.NewReader(data))
}

// ImageCache keeps recently loaded images decoded in memory.
//
// Images are keyed by the exact path string passed to Load and evicted in
// least-recently-used order once the cache is full. Concurrent loads of the
// same path share a single decode.
type ImageCache struct {
	images *lru.Cache[string, *Decoded]
	group  singleflight.Group
}

// NewImageCache creates a cache holding up to size images. A non-positive
// size means DefaultCacheSize.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	images, err := lru.New[string, *Decoded](size)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &ImageCache{images: images}
}

// Load retrieves an image from the cache or decodes it from disk.
func (c *ImageCache) Load(path string) (*Decoded, error) {
	if d, ok := c.images.Get(path); ok {
		return d, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		// A previous flight may have finished since the Get above.
		if d, ok := c.images.Peek(path); ok {
			return d, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()

		d, err := Decode(f)
		if err != nil {
			return nil, err
		}
		c.images.Add(path, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Decoded), nil
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int { return c.images.Len() }

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) { c.images.Remove(path) }

// ImageInfo contains metadata about a loaded image.
type ImageInfo struct {
	// Name is the file path or upload name the image came from.
	Name string `json:"name,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder-reported format, e.g. "png" or "webp".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the encoded size on disk or of the upload, when known.
	SizeBytes int64 `json:"size_bytes,omitempty"`
	// Size is SizeBytes for people, e.g. "1.2 MiB".
	Size string `json:"size,omitempty"`
}

// Describe builds ImageInfo for an already decoded image.
func Describe(d *Decoded, name string, size int64) *ImageInfo {
	bounds := d.Image.Bounds()

	hasAlpha := false
	colorDepth := "8-bit"
	switch d.Image.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	info := &ImageInfo{
		Name:       name,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     d.Format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  size,
	}
	if size > 0 {
		info.Size = humanize.IBytes(uint64(size))
	}
	return info
}

// LoadImageInfo loads an image through the cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	d, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return Describe(d, path, stat.Size()), nil
}
