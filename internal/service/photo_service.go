package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/util"
	"ppe_inspection/pkg/logger"
	"ppe_inspection/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PhotoSink receives the events of the uploads it started. Dispatch reports
// whether the photo was still part of the form when the event arrived.
// RemovePhoto returns the photo as it was when it left the form.
type PhotoSink interface {
	RequestID() uint
	State() form.State
	Photo(id string) (form.Photo, bool)
	Dispatch(ev form.PhotoEvent) bool
	RemovePhoto(id string) (form.Photo, bool)
}

// PhotoService compresses photos and uploads them in the background.
type PhotoService struct {
	Storage  *StorageService
	Cfg      *config.UploadConfig
	Compress func(data []byte, maxWidth, quality int) ([]byte, error)
	// Timeout bounds one upload.
	Timeout time.Duration

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPhotoService(storage *StorageService, cfg *config.UploadConfig) *PhotoService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &PhotoService{
		Storage:  storage,
		Cfg:      cfg,
		Compress: util.CompressImage,
		Timeout:  time.Minute,
		sem:      make(chan struct{}, workers),
	}
}

// Accept validates an uploaded file, adds it to the form as pending and
// starts its upload. It returns once the photo is registered; the upload
// result arrives later as an event on sink.
func (s *PhotoService) Accept(ctx context.Context, sink PhotoSink, slot form.PhotoSlot, fileName string, r io.Reader) (form.Photo, error) {
	if err := slot.Validate(); err != nil {
		return form.Photo{}, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	if slot.Section.Gated() && form.GateOfSection(sink.State().Sheet, slot.Section) == form.GateNo {
		return form.Photo{}, fmt.Errorf("%w: %s", form.ErrSectionInactive, slot.Section)
	}

	limit := s.Cfg.MaxBytes
	if limit <= 0 {
		limit = 15 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return form.Photo{}, err
	}
	if int64(len(data)) > limit {
		return form.Photo{}, util.ErrFileTooLarge
	}
	mime, err := util.DetectImage(data)
	if err != nil {
		return form.Photo{}, err
	}

	p := form.Photo{
		ID:        uuid.NewString(),
		Slot:      slot,
		FileName:  cleanFileName(fileName),
		MimeType:  mime,
		SizeBytes: int64(len(data)),
		Status:    form.PhotoStatusPending,
		AddedAt:   time.Now(),
		Data:      data,
	}
	if info, err := util.GetImageInfo(data); err == nil {
		p.Width, p.Height = info.Width, info.Height
	}

	sink.Dispatch(form.PhotoAdded{Photo: p})
	s.start(sink, p)
	return p, nil
}

// Retry restarts the upload of a failed photo.
func (s *PhotoService) Retry(sink PhotoSink, id string) (form.Photo, error) {
	p, ok := sink.Photo(id)
	if !ok {
		return form.Photo{}, util.ErrNotFound
	}
	if p.Status != form.PhotoStatusError || len(p.Data) == 0 {
		return form.Photo{}, fmt.Errorf("%w: photo is %s", util.ErrConflict, p.Status)
	}
	s.start(sink, p)
	return p, nil
}

// Remove drops a photo from the form and deletes its stored copy, if any.
func (s *PhotoService) Remove(ctx context.Context, sink PhotoSink, id string) error {
	p, ok := sink.RemovePhoto(id)
	if !ok {
		return util.ErrNotFound
	}
	s.Discard(ctx, p)
	return nil
}

// Discard deletes the stored copies of photos that already left the form.
// Photos still uploading are cleaned up by their upload when it finishes.
func (s *PhotoService) Discard(ctx context.Context, photos ...form.Photo) {
	for _, p := range photos {
		if p.StorageKey == "" {
			continue
		}
		if err := s.Storage.Delete(ctx, p.StorageKey); err != nil {
			logger.Log.Warn("Failed to delete stored photo", zap.String("key", p.StorageKey), zap.Error(err))
		}
	}
}

// Wait blocks until every upload started so far has settled.
func (s *PhotoService) Wait() {
	s.wg.Wait()
}

func (s *PhotoService) start(sink PhotoSink, p form.Photo) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.upload(sink, p)
	}()
}

func (s *PhotoService) upload(sink PhotoSink, p form.Photo) {
	if !sink.Dispatch(form.PhotoUploadStarted{ID: p.ID}) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	data, mime := p.Data, p.MimeType
	if s.Compress != nil {
		out, err := s.Compress(p.Data, s.Cfg.MaxWidth, s.Cfg.JPEGQuality)
		switch {
		case err != nil:
			logger.Log.Debug("Photo kept uncompressed", zap.String("photo_id", p.ID), zap.Error(err))
		case len(out) < len(data):
			data, mime = out, util.MimeJPEG
		}
	}

	key := fmt.Sprintf("inspections/%d/%s%s", sink.RequestID(), p.ID, util.Extension(mime))
	url, err := s.Storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mime)
	if err != nil {
		monitoring.PhotoUploads.WithLabelValues("failed").Inc()
		logger.Log.Warn("Photo upload failed",
			zap.Uint("request_id", sink.RequestID()),
			zap.String("photo_id", p.ID),
			zap.Error(err))
		sink.Dispatch(form.PhotoFailed{ID: p.ID, Err: "upload failed: " + err.Error()})
		return
	}

	if !sink.Dispatch(form.PhotoUploaded{ID: p.ID, StorageKey: key, URL: url, SizeBytes: int64(len(data)), MimeType: mime}) {
		// removed while uploading
		if err := s.Storage.Delete(ctx, key); err != nil {
			logger.Log.Warn("Failed to delete orphaned photo", zap.String("key", key), zap.Error(err))
		}
		return
	}
	monitoring.PhotoUploads.WithLabelValues("uploaded").Inc()
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "photo"
	}
	return name
}
