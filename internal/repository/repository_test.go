package repository

import (
	"context"
	"fmt"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/util"
	"ppe_inspection/pkg/database"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", strings.ReplaceAll(t.Name(), "/", "_"))
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

func newRequest(t *testing.T, repo *RequestRepository, company string) *model.InspectionRequest {
	t.Helper()
	req := &model.InspectionRequest{
		Company:  company,
		Region:   "Sul",
		SiteCode: "SP-01",
		Token:    util.GenerateToken(),
		Status:   model.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func answerFor(req *model.InspectionRequest) *model.InspectionAnswer {
	a := form.Answer{RequestID: req.ID}
	a.Identification.FullName = "Maria Souza"
	a.Identification.NationalID = "123.456.789-09"
	a.Aerial.Gate = form.GateNo
	a.Basic.Helmet = form.Approved
	a.Photos = []form.PhotoRef{{
		ID:         "9b2f4c1e-0000-4000-8000-000000000001",
		Slot:       form.PhotoSlot{Section: form.BasicPPE, Question: form.KeyHelmet},
		FileName:   "capacete.jpg",
		MimeType:   "image/jpeg",
		StorageKey: "inspections/1/capacete.jpg",
	}}
	return model.NewInspectionAnswer(a, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC))
}

func TestRequestRepository_FindByToken(t *testing.T) {
	db := openDB(t)
	repo := NewRequestRepository(db)
	req := newRequest(t, repo, "Acme")

	got, err := repo.FindByToken(context.Background(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err = repo.FindByToken(context.Background(), util.GenerateToken())
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRequestRepository_DuplicateToken(t *testing.T) {
	db := openDB(t)
	repo := NewRequestRepository(db)
	req := newRequest(t, repo, "Acme")

	dup := &model.InspectionRequest{Company: "Other", Token: req.Token, Status: model.StatusPending}
	assert.ErrorIs(t, repo.Create(context.Background(), dup), util.ErrConflict)
}

func TestRequestRepository_ListFiltersAndPages(t *testing.T) {
	db := openDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		newRequest(t, repo, fmt.Sprintf("Company %d", i))
	}
	first, _, err := repo.List(ctx, RequestFilter{})
	require.NoError(t, err)
	require.NoError(t, repo.MarkAnswered(ctx, first[0].ID, time.Now()))

	list, total, err := repo.List(ctx, RequestFilter{Status: model.StatusPending, Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, list, 3)

	list, total, err = repo.List(ctx, RequestFilter{Status: model.StatusAnswered})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].AnsweredAt)
}

func TestRequestRepository_DeletePending(t *testing.T) {
	db := openDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	pending := newRequest(t, repo, "Acme")
	answered := newRequest(t, repo, "Acme")
	require.NoError(t, repo.MarkAnswered(ctx, answered.ID, time.Now()))

	require.NoError(t, repo.DeletePending(ctx, pending.ID))
	_, err := repo.FindByID(ctx, pending.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	assert.ErrorIs(t, repo.DeletePending(ctx, answered.ID), util.ErrNotPending)
	assert.ErrorIs(t, repo.DeletePending(ctx, 9999), util.ErrNotFound)
}

func TestRequestRepository_MarkAnsweredTwice(t *testing.T) {
	db := openDB(t)
	repo := NewRequestRepository(db)
	req := newRequest(t, repo, "Acme")

	require.NoError(t, repo.MarkAnswered(context.Background(), req.ID, time.Now()))
	assert.ErrorIs(t, repo.MarkAnswered(context.Background(), req.ID, time.Now()), util.ErrConflict)
}

func TestAnswerRepository_SubmitRoundTrip(t *testing.T) {
	db := openDB(t)
	requests := NewRequestRepository(db)
	answers := NewAnswerRepository(db)
	ctx := context.Background()
	req := newRequest(t, requests, "Acme")

	row := answerFor(req)
	require.NoError(t, answers.Submit(ctx, row))
	assert.NotZero(t, row.ID)

	got, err := answers.FindByRequestID(ctx, req.ID)
	require.NoError(t, err)
	a := got.Answer()
	assert.Equal(t, "Maria Souza", a.Identification.FullName)
	assert.Equal(t, form.GateNo, a.Aerial.Gate)
	assert.Equal(t, form.Approved, a.Basic.Helmet)
	require.Len(t, a.Photos, 1)
	assert.Equal(t, form.KeyHelmet, a.Photos[0].Slot.Question)
	assert.Equal(t, form.Evaluate(a.Sheet).Outcome, got.Outcome)

	stored, err := requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnswered, stored.Status)
}

func TestAnswerRepository_SecondSubmitConflicts(t *testing.T) {
	db := openDB(t)
	requests := NewRequestRepository(db)
	answers := NewAnswerRepository(db)
	ctx := context.Background()
	req := newRequest(t, requests, "Acme")

	require.NoError(t, answers.Submit(ctx, answerFor(req)))
	assert.ErrorIs(t, answers.Submit(ctx, answerFor(req)), util.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&model.InspectionAnswer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAnswerRepository_ConcurrentSubmitsStoreOnce(t *testing.T) {
	db := openDB(t)
	requests := NewRequestRepository(db)
	answers := NewAnswerRepository(db)
	req := newRequest(t, requests, "Acme")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row := answerFor(req)
			row.Photos[0].PhotoID = fmt.Sprintf("9b2f4c1e-0000-4000-8000-00000000010%d", i)
			errs[i] = answers.Submit(context.Background(), row)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, util.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	var count int64
	require.NoError(t, db.Model(&model.InspectionAnswer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAnswerRepository_ListAnswered(t *testing.T) {
	db := openDB(t)
	requests := NewRequestRepository(db)
	answers := NewAnswerRepository(db)
	ctx := context.Background()
	newRequest(t, requests, "Pending Co")
	req := newRequest(t, requests, "Answered Co")
	require.NoError(t, answers.Submit(ctx, answerFor(req)))

	list, err := answers.ListAnswered(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Request)
	assert.Equal(t, "Answered Co", list[0].Request.Company)
	assert.Len(t, list[0].Photos, 1)
}
