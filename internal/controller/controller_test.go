package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/middleware"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/service"
	"ppe_inspection/internal/wizard"
	"ppe_inspection/pkg/database"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t           *testing.T
	cfg         *config.Config
	router      *gin.Engine
	inspections *service.InspectionService
	photos      *service.PhotoService
}

func newTestServer(t *testing.T) *testServer {
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

	cfg := &config.Config{
		Storage:    config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Inspection: config.InspectionConfig{PublicBaseURL: "http://forms.test", LinkTTL: 24 * time.Hour},
		Upload:     config.UploadConfig{MaxBytes: 256 << 10, MaxWidth: 64, JPEGQuality: 70, Workers: 2},
	}
	requests := repository.NewRequestRepository(db)
	answers := repository.NewAnswerRepository(db)
	storage := service.NewStorageService(cfg)
	inspections := service.NewInspectionService(requests, answers, cfg)
	sessions := service.NewSessionService(inspections, answers, nil)
	photos := service.NewPhotoService(storage, &cfg.Upload)
	photos.Compress = nil
	t.Cleanup(photos.Wait)

	admin := NewAdminController(inspections, service.NewReportService(requests, answers, storage, cfg))
	forms := NewFormController(sessions, photos)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/admin/inspections", admin.CreateInspection)
	api.GET("/admin/inspections", admin.ListInspections)
	api.GET("/admin/inspections/export.xlsx", admin.ExportXLSX)
	api.GET("/admin/inspections/:id", admin.GetInspection)
	api.DELETE("/admin/inspections/:id", admin.DeleteInspection)
	api.GET("/admin/inspections/:id/report.pdf", admin.DownloadReport)

	f := api.Group("/forms/:token", middleware.FormSession(sessions, RespondError))
	f.GET("", forms.GetForm)
	f.PATCH("", forms.PatchForm)
	f.POST("/next", forms.Next)
	f.POST("/previous", forms.Previous)
	f.POST("/photos", forms.UploadPhoto)
	f.POST("/photos/:photoId/retry", forms.RetryPhoto)
	f.DELETE("/photos/:photoId", forms.DeletePhoto)
	f.POST("/submit", forms.Submit)

	return &testServer{t: t, cfg: cfg, router: router, inspections: inspections, photos: photos}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string) (int, envelope, *httptest.ResponseRecorder) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env, w
}

func (s *testServer) json(method, path string, body any) (int, envelope) {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	code, env, _ := s.do(method, path, r, "application/json")
	return code, env
}

type linkData struct {
	Request struct {
		ID    uint   `json:"id"`
		Token string `json:"token"`
	} `json:"request"`
	URL string `json:"url"`
}

func (s *testServer) createLink() linkData {
	s.t.Helper()
	code, env := s.json(http.MethodPost, "/api/admin/inspections", map[string]string{
		"company": "Acme Energia",
		"region":  "Nordeste",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var link linkData
	require.NoError(s.t, json.Unmarshal(env.Data, &link))
	return link
}

type viewData struct {
	Current string `json:"current"`
	State   struct {
		Identification struct {
			CPF    string `json:"cpf"`
			Region string `json:"regiao"`
		} `json:"identificacao"`
	} `json:"state"`
	Violations     []form.Violation `json:"violations"`
	PendingUploads int              `json:"pendingUploads"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func completeOps() []PatchOp {
	ops := []PatchOp{
		{Op: "identification", Field: "nome_completo", Value: "Maria Souza"},
		{Op: "identification", Field: "cpf", Value: "529.982.247-25"},
		{Op: "identification", Field: "funcao", Value: "Técnica de campo"},
		{Op: "gate", Section: "epi_altura", Gate: form.GateNo},
		{Op: "gate", Section: "epi_eletrico", Gate: form.GateNo},
		{Op: "declaration", Accepted: true},
	}
	for _, sec := range []form.Section{form.BasicPPE, form.GeneralInspection} {
		for _, it := range form.ItemsOf(form.Sheet{}, sec) {
			ops = append(ops, PatchOp{Op: "verdict", Item: string(it.Key), Verdict: form.Approved})
		}
	}
	return ops
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for x := 0; x < 16; x++ {
		img.Set(x, x%12, color.RGBA{200, 30, 30, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (s *testServer) upload(token, section, fileName string, data []byte) (int, envelope) {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(s.t, mw.WriteField("section", section))
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(s.t, err)
	_, err = part.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	code, env, _ := s.do(http.MethodPost, "/api/forms/"+token+"/photos", &body, mw.FormDataContentType())
	return code, env
}

func TestCreateInspectionValidatesBody(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.json(http.MethodPost, "/api/admin/inspections", map[string]string{"region": "Sul"})
	assert.Equal(t, http.StatusBadRequest, code)

	link := s.createLink()
	assert.Equal(t, "http://forms.test/forms/"+link.Request.Token, link.URL)
}

func TestOpenFormErrors(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.json(http.MethodGet, "/api/forms/not-a-token", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodGet, "/api/forms/"+strings.Repeat("0", 32), nil)
	assert.Equal(t, http.StatusNotFound, code)

	link := s.createLink()
	s.inspections.Now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	code, _ = s.json(http.MethodGet, "/api/forms/"+link.Request.Token, nil)
	assert.Equal(t, http.StatusGone, code)
}

func TestFillAndSubmitForm(t *testing.T) {
	s := newTestServer(t)
	link := s.createLink()
	base := "/api/forms/" + link.Request.Token

	code, env := s.json(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[viewData](t, env.Data)
	assert.Equal(t, "identificacao", view.Current)
	assert.Equal(t, "Nordeste", view.State.Identification.Region)

	code, env = s.json(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, decode[viewData](t, env.Data).Violations)

	code, env = s.json(http.MethodPatch, base, PatchFormRequest{Patches: completeOps()})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "529.982.247-25", decode[viewData](t, env.Data).State.Identification.CPF)

	code, _ = s.json(http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, code, "submit is only available from the conclusion")

	for i := 0; i < len(form.Sections())-1; i++ {
		code, env = s.json(http.MethodPost, base+"/next", nil)
		require.Equal(t, http.StatusOK, code, env.Message)
	}
	assert.Equal(t, "conclusao", decode[viewData](t, env.Data).Current)

	code, env = s.json(http.MethodPost, base+"/previous", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "inspecao_geral", decode[viewData](t, env.Data).Current)
	s.json(http.MethodPost, base+"/next", nil)

	code, env = s.json(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	receipt := decode[struct {
		AnswerID uint         `json:"answerId"`
		Summary  form.Summary `json:"summary"`
	}](t, env.Data)
	assert.NotZero(t, receipt.AnswerID)
	assert.Equal(t, form.OutcomeApproved, receipt.Summary.Outcome)

	code, env = s.json(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, env.Message, "Refresh")

	id := fmt.Sprint(link.Request.ID)
	code, env = s.json(http.MethodGet, "/api/admin/inspections/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Maria Souza")

	code, _, w := s.do(http.MethodGet, "/api/admin/inspections/"+id+"/report.pdf", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	code, _ = s.json(http.MethodDelete, "/api/admin/inspections/"+id, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _, w = s.do(http.MethodGet, "/api/admin/inspections/export.xlsx", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
}

func TestPatchRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	base := "/api/forms/" + s.createLink().Request.Token

	code, _ := s.json(http.MethodPatch, base, PatchFormRequest{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodPatch, base, PatchFormRequest{Patches: []PatchOp{{Op: "explode"}}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodPatch, base, PatchFormRequest{Patches: []PatchOp{{Op: "verdict", Item: "nope", Verdict: form.Approved}}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodPatch, base, PatchFormRequest{Patches: []PatchOp{{Op: "gate", Section: "epi_basico", Gate: form.GateNo}}})
	assert.Equal(t, http.StatusBadRequest, code, "basic PPE has no gate")
}

func TestPhotoEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.createLink().Request.Token
	base := "/api/forms/" + token

	code, env := s.upload(token, "epi_basico", "capacete.png", pngFile(t))
	require.Equal(t, http.StatusAccepted, code, env.Message)
	photo := decode[form.Photo](t, env.Data)
	assert.Equal(t, "capacete.png", photo.FileName)

	s.photos.Wait()
	code, env = s.json(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, decode[viewData](t, env.Data).PendingUploads)
	assert.Contains(t, string(env.Data), `"status":"uploaded"`)

	code, _ = s.json(http.MethodPost, base+"/photos/"+photo.ID+"/retry", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.json(http.MethodDelete, base+"/photos/"+photo.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.json(http.MethodDelete, base+"/photos/"+photo.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.upload(token, "epi_basico", "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.upload(token, "nowhere", "capacete.png", pngFile(t))
	assert.Equal(t, http.StatusBadRequest, code)

	s.cfg.Upload.MaxBytes = 10
	code, _ = s.upload(token, "epi_basico", "capacete.png", pngFile(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func storedFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	require.NoError(t, filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	}))
	return n
}

func TestGateNoDiscardsSectionPhotos(t *testing.T) {
	s := newTestServer(t)
	token := s.createLink().Request.Token
	base := "/api/forms/" + token

	code, env := s.json(http.MethodPatch, base, PatchFormRequest{Patches: []PatchOp{
		{Op: "gate", Section: "epi_altura", Gate: form.GateYes},
	}})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.upload(token, "epi_altura", "cinto.png", pngFile(t))
	require.Equal(t, http.StatusAccepted, code, env.Message)
	code, env = s.upload(token, "epi_basico", "capacete.png", pngFile(t))
	require.Equal(t, http.StatusAccepted, code, env.Message)
	s.photos.Wait()
	require.Equal(t, 2, storedFiles(t, s.cfg.Storage.LocalPath))

	code, env = s.json(http.MethodPatch, base, PatchFormRequest{Patches: []PatchOp{
		{Op: "gate", Section: "epi_altura", Gate: form.GateNo},
	}})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.NotContains(t, string(env.Data), "cinto.png")
	assert.Contains(t, string(env.Data), "capacete.png")
	assert.Equal(t, 1, storedFiles(t, s.cfg.Storage.LocalPath))
}

func TestListInspections(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.createLink()
	}

	code, env := s.json(http.MethodGet, "/api/admin/inspections?status=pending&limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		List []struct {
			URL     string `json:"url"`
			Status  string `json:"status"`
			Expired bool   `json:"expired"`
		} `json:"list"`
		Total int64 `json:"total"`
		Limit int   `json:"limit"`
	}](t, env.Data)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.List, 2)
	assert.Equal(t, 2, page.Limit)
	for _, item := range page.List {
		assert.Equal(t, "pending", item.Status)
		assert.True(t, strings.HasPrefix(item.URL, "http://forms.test/forms/"))
		assert.False(t, item.Expired)
	}

	code, _ = s.json(http.MethodGet, "/api/admin/inspections?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.json(http.MethodGet, "/api/admin/inspections/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.json(http.MethodGet, "/api/admin/inspections/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRespondErrorTransientIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/forms/x/submit", nil)

	RespondError(ctx, &wizard.TransientError{Err: errors.New("connection reset")})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.JSONEq(t, `{"retryable":true}`, string(env.Data))
}
