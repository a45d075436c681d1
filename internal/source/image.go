package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	maxImageBytes = 16 << 20
	qrPrefix      = "qr:"
	qrSize        = 256
)

// ErrUnsupportedImage is returned for references the loader cannot resolve.
var ErrUnsupportedImage = errors.New("unsupported image reference")

// ImageInfo is a resolved image: an href usable in markup plus its
// intrinsic size.
type ImageInfo struct {
	Href   string
	Width  float64
	Height float64
	Format string
}

// ImageLoader resolves image references. Supported forms:
//
//	qr:<text>             QR code generated on the fly
//	data:<mime>;base64,…  inline data URI
//	http(s)://…           fetched, href kept as the URL
//	anything else         local file, inlined as a data URI
//
// Concurrent loads of the same reference share one fetch and successful
// results are cached.
type ImageLoader struct {
	Client *http.Client

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]ImageInfo
}

func NewImageLoader() *ImageLoader {
	return &ImageLoader{
		Client: &http.Client{Timeout: 20 * time.Second},
		cache:  make(map[string]ImageInfo),
	}
}

func (l *ImageLoader) Load(ctx context.Context, ref string) (ImageInfo, error) {
	l.mu.RLock()
	info, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		return info, nil
	}

	v, err, _ := l.group.Do(ref, func() (interface{}, error) {
		info, err := l.resolve(ctx, ref)
		if err != nil {
			return ImageInfo{}, err
		}
		l.mu.Lock()
		l.cache[ref] = info
		l.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return ImageInfo{}, err
	}
	return v.(ImageInfo), nil
}

func (l *ImageLoader) resolve(ctx context.Context, ref string) (ImageInfo, error) {
	switch {
	case ref == "":
		return ImageInfo{}, fmt.Errorf("empty reference: %w", ErrUnsupportedImage)
	case strings.HasPrefix(ref, qrPrefix):
		png, err := qrcode.Encode(strings.TrimPrefix(ref, qrPrefix), qrcode.Medium, qrSize)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("qr encode: %w", err)
		}
		return describe(png, "")
	case strings.HasPrefix(ref, "data:"):
		data, err := decodeDataURI(ref)
		if err != nil {
			return ImageInfo{}, err
		}
		return describe(data, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err := l.fetch(ctx, ref)
		if err != nil {
			return ImageInfo{}, err
		}
		return describe(data, ref)
	default:
		path := strings.TrimPrefix(ref, "file://")
		f, err := os.Open(path)
		if err != nil {
			return ImageInfo{}, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
		if err != nil {
			return ImageInfo{}, err
		}
		return describe(data, "")
	}
}

func (l *ImageLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: %s", ref, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// describe decodes the image header. When href is empty the bytes are
// inlined as a data URI.
func describe(data []byte, href string) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image: %w", err)
	}
	if href == "" {
		href = "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return ImageInfo{
		Href:   href,
		Width:  float64(cfg.Width),
		Height: float64(cfg.Height),
		Format: format,
	}, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri: %w", ErrUnsupportedImage)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data uri: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return []byte(s), nil
}
