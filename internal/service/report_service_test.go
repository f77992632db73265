package service

import (
	"bytes"
	"context"
	"fmt"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/report"
	"ppe_inspection/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// submitWithPhoto answers one request with a single uploaded photo.
func submitWithPhoto(t *testing.T, f *fixture) *CreatedLink {
	t.Helper()
	ctx := context.Background()
	link := f.link(t)
	sess, err := f.sessions.Open(ctx, link.Request.Token)
	require.NoError(t, err)

	_, err = f.photos.Accept(ctx, sess, basicSlot, "capacete.png", bytes.NewReader(pngBytes(t, 32, 24)))
	require.NoError(t, err)
	f.photos.Wait()

	_, err = sess.Do(ctx, fillToConclusion)
	require.NoError(t, err)
	receipt, _, err := f.sessions.Submit(ctx, sess)
	require.NoError(t, err)
	require.Empty(t, receipt.Warnings)
	return link
}

func TestPDFOfAnsweredInspection(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	link := submitWithPhoto(t, f)

	data, name, err := f.reports.PDF(context.Background(), link.Request.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, fmt.Sprintf("inspection-%d.pdf", link.Request.ID), name)
}

func TestPDFOfPendingInspectionIsNotFound(t *testing.T) {
	f := newFixture(t)
	link := f.link(t)

	_, _, err := f.reports.PDF(context.Background(), link.Request.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, _, err = f.reports.PDF(context.Background(), 9999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestXLSXListsAnsweredInspections(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	submitWithPhoto(t, f)
	f.link(t) // pending, not exported

	data, err := f.reports.XLSX(context.Background())
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Inspections")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "Request", rows[0][0])
	assert.Equal(t, "Acme Energia", rows[1][1])
	assert.Equal(t, "João Pereira", rows[1][4])
	assert.Equal(t, "1", rows[1][len(rows[1])-2], "photo count")
}

func TestOptionsFollowConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.Report.MaxImageWidth = 80
	opt := f.reports.Options()
	assert.Equal(t, "Relatório de EPI", opt.Title)
	assert.Equal(t, 80.0, opt.MaxImageWidth)
	assert.Equal(t, 210.0, opt.PageWidth)

	f.reports.SetConfig(config.ReportConfig{Title: "Inspeção de EPI"})
	opt = f.reports.Options()
	assert.Equal(t, "Inspeção de EPI", opt.Title)
	assert.Equal(t, report.DefaultOptions().MaxImageWidth, opt.MaxImageWidth)
}
