package service

import (
	"context"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/repository"
	"ppe_inspection/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestReturnsShareURL(t *testing.T) {
	f := newFixture(t)
	link := f.link(t)

	assert.Equal(t, "https://epi.example.com/forms/"+link.Request.Token, link.URL)
	assert.True(t, util.ValidToken(link.Request.Token))
	assert.Equal(t, model.StatusPending, link.Request.Status)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, link.Request.CreatedAt.Add(72*time.Hour), *link.ExpiresAt)
}

func TestCreateRequestRequiresCompany(t *testing.T) {
	f := newFixture(t)
	_, err := f.inspections.CreateRequest(context.Background(), CreateRequestInput{Company: "   "})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestFetchRequestByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.link(t)

	req, err := f.inspections.FetchRequestByToken(ctx, link.Request.Token)
	require.NoError(t, err)
	assert.Equal(t, link.Request.ID, req.ID)

	_, err = f.inspections.FetchRequestByToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, util.ErrInvalidToken)

	_, err = f.inspections.FetchRequestByToken(ctx, strings.Repeat("a", util.TokenLength))
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestFetchRequestByTokenExpired(t *testing.T) {
	f := newFixture(t)
	link := f.link(t)
	f.inspections.Now = func() time.Time { return link.Request.CreatedAt.Add(73 * time.Hour) }

	_, err := f.inspections.FetchRequestByToken(context.Background(), link.Request.Token)
	assert.ErrorIs(t, err, util.ErrLinkExpired)

	f.cfg.Inspection.LinkTTL = 0
	_, err = f.inspections.FetchRequestByToken(context.Background(), link.Request.Token)
	assert.NoError(t, err, "a zero ttl never expires")
}

func TestFetchRequestByTokenAnswered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.link(t)
	require.NoError(t, f.requests.MarkAnswered(ctx, link.Request.ID, time.Now()))

	_, err := f.inspections.FetchRequestByToken(ctx, link.Request.Token)
	assert.ErrorIs(t, err, util.ErrAlreadyAnswered)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.inspections.List(context.Background(), repository.RequestFilter{Status: "archived"})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestDetailOfPendingRequest(t *testing.T) {
	f := newFixture(t)
	link := f.link(t)

	d, err := f.inspections.Detail(context.Background(), link.Request.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Answer)
	assert.Nil(t, d.Summary)
	assert.Equal(t, link.URL, d.URL)
	assert.False(t, d.Expired)
}

func TestDeleteOnlyPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.link(t)
	answered := f.link(t)
	require.NoError(t, f.requests.MarkAnswered(ctx, answered.Request.ID, time.Now()))

	require.NoError(t, f.inspections.Delete(ctx, pending.Request.ID))
	assert.ErrorIs(t, f.inspections.Delete(ctx, answered.Request.ID), util.ErrNotPending)

	_, err := f.inspections.FetchRequestByToken(ctx, pending.Request.Token)
	assert.ErrorIs(t, err, util.ErrNotFound)
}
