package util

const DateFormat = "2006-01-02"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	AllowedImageTypes = []string{MimeJPEG, MimePNG, "image/webp", "image/gif"}
	// HEICImageTypes are accepted only when ffmpeg can convert them.
	HEICImageTypes = []string{"image/heic", "image/heif"}
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
