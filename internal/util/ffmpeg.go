package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/gif"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageInfo 存储图片信息
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

var (
	ffmpegOnce      sync.Once
	ffmpegInstalled bool
)

// FFmpegAvailable reports whether an ffmpeg binary is on PATH. The lookup
// runs once per process.
func FFmpegAvailable() bool {
	ffmpegOnce.Do(func() {
		_, err := exec.LookPath("ffmpeg")
		ffmpegInstalled = err == nil
	})
	return ffmpegInstalled
}

// GetImageInfo reads the dimensions of an encoded image. The registered
// decoders (jpeg, png, gif, webp) are tried first; heic is probed with
// ffprobe when it is installed.
func GetImageInfo(data []byte) (*ImageInfo, error) {
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return &ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
	}
	if !FFmpegAvailable() {
		return nil, fmt.Errorf("%w: unknown image format", ErrInvalidFile)
	}

	tmp, err := writeTemp(data, "probe-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	jsonOutput, err := ffmpeg.Probe(tmp)
	if err != nil {
		return nil, fmt.Errorf("获取图片信息失败: %w", err)
	}

	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("解析图片信息失败: %w", err)
	}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" && stream.Width > 0 {
			return &ImageInfo{Width: stream.Width, Height: stream.Height, Format: stream.CodecName}, nil
		}
	}
	return nil, fmt.Errorf("%w: no image stream", ErrInvalidFile)
}

// CompressImage re-encodes a photo as JPEG no wider than maxWidth. quality is
// 1-100 as for image/jpeg. ffmpeg is used when installed; otherwise the
// photo is decoded in process, which covers every accepted format but heic.
func CompressImage(data []byte, maxWidth, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	if FFmpegAvailable() {
		out, err := compressWithFFmpeg(data, maxWidth, quality)
		if err == nil {
			return out, nil
		}
	}
	return compressWithStdlib(data, maxWidth, quality)
}

func compressWithFFmpeg(data []byte, maxWidth, quality int) ([]byte, error) {
	in, err := writeTemp(data, "photo-in-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(in)
	out := in + ".jpg"
	defer os.Remove(out)

	args := ffmpeg.KwArgs{
		"frames:v": "1",
		"q:v":      strconv.Itoa(jpegQScale(quality)),
	}
	if maxWidth > 0 {
		args["vf"] = fmt.Sprintf("scale='min(%d,iw)':-2", maxWidth)
	}
	err = ffmpeg.Input(in).
		Output(out, args).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg 压缩失败: %w", err)
	}
	return os.ReadFile(out)
}

// jpegQScale maps a 1-100 quality to ffmpeg's 2-31 mjpeg scale, where lower
// is better.
func jpegQScale(quality int) int {
	q := 31 - (quality*29)/100
	if q < 2 {
		q = 2
	}
	return q
}

func compressWithStdlib(data []byte, maxWidth, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = downscale(img, maxWidth)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func downscale(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func writeTemp(data []byte, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
