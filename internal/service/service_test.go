package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/wizard"
	"ppe_inspection/pkg/database"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Inspection: config.InspectionConfig{
			PublicBaseURL: "https://epi.example.com/",
			LinkTTL:       72 * time.Hour,
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20, MaxWidth: 64, JPEGQuality: 70, Workers: 2},
		Report: config.ReportConfig{Title: "Relatório de EPI", PhotoConcurrency: 2, FetchTimeout: 5 * time.Second},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	cfg         *config.Config
	requests    *repository.RequestRepository
	answers     *repository.AnswerRepository
	inspections *InspectionService
	drafts      *memDrafts
	sessions    *SessionService
	storage     *memProvider
	photos      *PhotoService
	reports     *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	cfg := testConfig()
	f := &fixture{cfg: cfg, drafts: newMemDrafts(), storage: newMemProvider()}
	f.requests = repository.NewRequestRepository(db)
	f.answers = repository.NewAnswerRepository(db)
	f.inspections = NewInspectionService(f.requests, f.answers, cfg)
	f.sessions = NewSessionService(f.inspections, f.answers, f.drafts)
	storage := &StorageService{Provider: f.storage}
	f.photos = NewPhotoService(storage, &cfg.Upload)
	f.reports = NewReportService(f.requests, f.answers, storage, cfg)
	t.Cleanup(f.photos.Wait)
	return f
}

func (f *fixture) link(t *testing.T) *CreatedLink {
	t.Helper()
	link, err := f.inspections.CreateRequest(context.Background(), CreateRequestInput{
		Company:   "Acme Energia",
		Region:    "Sudeste",
		SiteCode:  "SE-042",
		Inspector: "Carla Mendes",
	})
	require.NoError(t, err)
	return link
}

// completePatches fills every required field with both gates answered no.
func completePatches() []form.Patch {
	ps := []form.Patch{
		form.SetIdentification{Field: form.FieldFullName, Value: "João Pereira"},
		form.SetIdentification{Field: form.FieldNationalID, Value: "52998224725"},
		form.SetIdentification{Field: form.FieldRole, Value: "Eletricista"},
		form.SetGate{Section: form.AerialPPE, Gate: form.GateNo},
		form.SetGate{Section: form.ElectricalPPE, Gate: form.GateNo},
		form.SetDeclaration{Accepted: true},
	}
	for _, sec := range []form.Section{form.BasicPPE, form.GeneralInspection} {
		for _, it := range form.ItemsOf(form.Sheet{}, sec) {
			ps = append(ps, form.SetVerdict{Item: it.Key, Verdict: form.Approved})
		}
	}
	return ps
}

func fillToConclusion(c *wizard.Controller) error {
	if err := c.Patch(completePatches()...); err != nil {
		return err
	}
	for c.Current() != form.Conclusion {
		if v := c.Next(); len(v) > 0 {
			return fmt.Errorf("stuck at %s: %v", c.Current(), v)
		}
	}
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 3), uint8(y * 5), 90, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memDrafts struct {
	mu     sync.Mutex
	drafts map[string][]byte
	saves  int
}

func newMemDrafts() *memDrafts {
	return &memDrafts{drafts: map[string][]byte{}}
}

func (m *memDrafts) Load(ctx context.Context, token string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.drafts[token]
	if !ok {
		return nil, nil
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *memDrafts) Save(ctx context.Context, token string, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[token] = raw
	m.saves++
	return nil
}

func (m *memDrafts) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, token)
	return nil
}

func (m *memDrafts) has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drafts[token]
	return ok
}

var errStorageDown = errors.New("storage unavailable")

type memProvider struct {
	mu       sync.Mutex
	objects  map[string][]byte
	fail     int
	gate     chan struct{}
	started  chan string
	active   int
	peak     int
	deleted  []string
	uploaded int
}

func newMemProvider() *memProvider {
	return &memProvider{objects: map[string][]byte{}}
}

func (p *memProvider) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	p.mu.Lock()
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	gate, started := p.gate, p.started
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if started != nil {
		started <- key
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail > 0 {
		p.fail--
		return "", errStorageDown
	}
	p.objects[key] = data
	p.uploaded++
	return "mem://" + key, nil
}

func (p *memProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *memProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.objects, key)
	p.deleted = append(p.deleted, key)
	return nil
}

func (p *memProvider) GetURL(key string) string {
	return "mem://" + key
}

func (p *memProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}
