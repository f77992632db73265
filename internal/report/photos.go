package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"ppe_inspection/internal/form"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// PhotoSource opens the stored binary of an uploaded photo.
type PhotoSource interface {
	Open(ctx context.Context, ref form.PhotoRef) (io.ReadCloser, error)
}

// Photo is a photo ready to be embedded, or the reason it cannot be.
type Photo struct {
	Ref    form.PhotoRef
	Data   []byte
	Format string
	Width  int
	Height int
	Err    error
}

// maxPhotoBytes bounds a single embedded photo.
const maxPhotoBytes = 32 << 20

// FetchPhotos loads every photo with at most concurrency fetches in flight.
// A photo that cannot be loaded or decoded gets its Err set; the others are
// unaffected. The result keeps the order of refs.
func FetchPhotos(ctx context.Context, src PhotoSource, refs []form.PhotoRef, concurrency int) []Photo {
	out := make([]Photo, len(refs))
	if concurrency <= 0 {
		concurrency = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			out[i] = fetchOne(ctx, src, ref)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func fetchOne(ctx context.Context, src PhotoSource, ref form.PhotoRef) Photo {
	p := Photo{Ref: ref}
	if err := ctx.Err(); err != nil {
		p.Err = err
		return p
	}
	rc, err := src.Open(ctx, ref)
	if err != nil {
		p.Err = fmt.Errorf("open %s: %w", ref.FileName, err)
		return p
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPhotoBytes+1))
	if err != nil {
		p.Err = fmt.Errorf("read %s: %w", ref.FileName, err)
		return p
	}
	if len(data) > maxPhotoBytes {
		p.Err = fmt.Errorf("%s is larger than %d bytes", ref.FileName, maxPhotoBytes)
		return p
	}
	return decodePhoto(p, data)
}

// decodePhoto checks that data is an image and converts anything that is not
// a JPEG to PNG, the two formats the PDF writer embeds.
func decodePhoto(p Photo, data []byte) Photo {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		p.Err = fmt.Errorf("decode %s: %w", p.Ref.FileName, err)
		return p
	}
	p.Width, p.Height = cfg.Width, cfg.Height
	if format == "jpeg" {
		p.Data, p.Format = data, "JPG"
		return p
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		p.Err = fmt.Errorf("decode %s: %w", p.Ref.FileName, err)
		return p
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		p.Err = fmt.Errorf("encode %s: %w", p.Ref.FileName, err)
		return p
	}
	p.Data, p.Format = buf.Bytes(), "PNG"
	return p
}

// LoadPhoto wraps raw bytes that are already in memory, as the offline
// render command does.
func LoadPhoto(ref form.PhotoRef, data []byte) Photo {
	return decodePhoto(Photo{Ref: ref}, data)
}

// jpegQuality is used when the renderer must re-encode a photo it could not
// embed as is.
const jpegQuality = 85

func reencodeJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DirPhotos reads photos from a local directory, looking them up by storage
// key first and by file name second.
type DirPhotos string

func (d DirPhotos) Open(ctx context.Context, ref form.PhotoRef) (io.ReadCloser, error) {
	for _, name := range []string{ref.StorageKey, ref.FileName} {
		if name == "" {
			continue
		}
		f, err := os.Open(filepath.Join(string(d), filepath.Clean("/"+name)))
		if err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("photo %s not found in %s", ref.FileName, string(d))
}
