package service

import (
	"bytes"
	"context"
	"ppe_inspection/internal/form"
	"ppe_inspection/internal/util"
	"ppe_inspection/internal/wizard"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var basicSlot = form.PhotoSlot{Section: form.BasicPPE, Question: form.ItemsOf(form.Sheet{}, form.BasicPPE)[0].Key}

func openSession(t *testing.T, f *fixture) *Session {
	t.Helper()
	sess, err := f.sessions.Open(context.Background(), f.link(t).Request.Token)
	require.NoError(t, err)
	return sess
}

func TestAcceptUploadsInBackground(t *testing.T) {
	f := newFixture(t)
	sess := openSession(t, f)

	p, err := f.photos.Accept(context.Background(), sess, basicSlot, `C:\fotos\capacete.png`, bytes.NewReader(pngBytes(t, 200, 100)))
	require.NoError(t, err)
	assert.Equal(t, "capacete.png", p.FileName)
	assert.Equal(t, util.MimePNG, p.MimeType)
	assert.Equal(t, 200, p.Width)
	assert.Equal(t, 100, p.Height)

	f.photos.Wait()
	stored, ok := sess.Photo(p.ID)
	require.True(t, ok)
	assert.Equal(t, form.PhotoStatusUploaded, stored.Status)
	assert.Nil(t, stored.Data)
	assert.True(t, strings.HasPrefix(stored.StorageKey, "inspections/"))
	assert.Contains(t, stored.StorageKey, p.ID)
	assert.Equal(t, "mem://"+stored.StorageKey, stored.URL)
	assert.Equal(t, 1, f.storage.count())
}

func TestFailedUploadCanBeRetried(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	f.storage.fail = 1
	sess := openSession(t, f)

	p, err := f.photos.Accept(context.Background(), sess, basicSlot, "bota.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	f.photos.Wait()

	failed, _ := sess.Photo(p.ID)
	assert.Equal(t, form.PhotoStatusError, failed.Status)
	assert.Contains(t, failed.Error, errStorageDown.Error())
	assert.NotEmpty(t, failed.Data)

	_, err = f.photos.Retry(sess, p.ID)
	require.NoError(t, err)
	f.photos.Wait()

	done, _ := sess.Photo(p.ID)
	assert.Equal(t, form.PhotoStatusUploaded, done.Status)

	_, err = f.photos.Retry(sess, p.ID)
	assert.ErrorIs(t, err, util.ErrConflict, "an uploaded photo cannot be retried")
	_, err = f.photos.Retry(sess, "missing")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestRemoveDuringUploadDeletesOrphan(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	f.storage.gate = make(chan struct{})
	f.storage.started = make(chan string, 1)
	sess := openSession(t, f)
	ctx := context.Background()

	p, err := f.photos.Accept(ctx, sess, basicSlot, "luva.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	key := <-f.storage.started

	require.NoError(t, f.photos.Remove(ctx, sess, p.ID))
	close(f.storage.gate)
	f.photos.Wait()

	_, ok := sess.Photo(p.ID)
	assert.False(t, ok)
	assert.Contains(t, f.storage.deleted, key)
	assert.Zero(t, f.storage.count())
	assert.ErrorIs(t, f.photos.Remove(ctx, sess, p.ID), util.ErrNotFound)
}

func TestRemoveUploadedPhotoDeletesObject(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	sess := openSession(t, f)
	ctx := context.Background()

	p, err := f.photos.Accept(ctx, sess, basicSlot, "oculos.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	f.photos.Wait()
	stored, _ := sess.Photo(p.ID)

	require.NoError(t, f.photos.Remove(ctx, sess, p.ID))
	assert.Equal(t, []string{stored.StorageKey}, f.storage.deleted)
	assert.Zero(t, f.storage.count())
}

func TestAcceptRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	sess := openSession(t, f)
	ctx := context.Background()

	_, err := f.photos.Accept(ctx, sess, basicSlot, "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, util.ErrInvalidFile)

	f.cfg.Upload.MaxBytes = 64
	_, err = f.photos.Accept(ctx, sess, basicSlot, "big.png", bytes.NewReader(pngBytes(t, 40, 40)))
	assert.ErrorIs(t, err, util.ErrFileTooLarge)

	_, err = f.photos.Accept(ctx, sess, form.PhotoSlot{Section: form.BasicPPE, Question: "nope"}, "x.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	assert.Empty(t, sess.State().PhotoList())
}

func TestAcceptRefusesInactiveSection(t *testing.T) {
	f := newFixture(t)
	sess := openSession(t, f)
	ctx := context.Background()

	_, err := sess.Do(ctx, func(c *wizard.Controller) error {
		return c.Patch(form.SetGate{Section: form.AerialPPE, Gate: form.GateNo})
	})
	require.NoError(t, err)

	_, err = f.photos.Accept(ctx, sess, form.PhotoSlot{Section: form.AerialPPE}, "cinto.png", bytes.NewReader(pngBytes(t, 8, 8)))
	assert.ErrorIs(t, err, form.ErrSectionInactive)
}

func TestUploadConcurrencyIsBounded(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	f.storage.gate = make(chan struct{})
	f.storage.started = make(chan string, 8)
	sess := openSession(t, f)

	for i := 0; i < 5; i++ {
		_, err := f.photos.Accept(context.Background(), sess, basicSlot, "foto.png", bytes.NewReader(pngBytes(t, 8, 8)))
		require.NoError(t, err)
	}
	<-f.storage.started
	<-f.storage.started
	assert.Equal(t, 5, sess.View().PendingUploads)

	close(f.storage.gate)
	f.photos.Wait()

	assert.LessOrEqual(t, f.storage.peak, f.cfg.Upload.Workers)
	assert.Equal(t, 5, f.storage.count())
	assert.Zero(t, sess.View().PendingUploads)
}

func TestRemovePhotoReturnsStoredKey(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	sess := openSession(t, f)

	p, err := f.photos.Accept(context.Background(), sess, basicSlot, "luva.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	f.photos.Wait()

	removed, ok := sess.RemovePhoto(p.ID)
	require.True(t, ok)
	assert.NotEmpty(t, removed.StorageKey, "key set by the finished upload")
	_, ok = sess.RemovePhoto(p.ID)
	assert.False(t, ok)
}

func TestGateNoDiscardsStoredPhotos(t *testing.T) {
	f := newFixture(t)
	f.photos.Compress = nil
	sess := openSession(t, f)
	ctx := context.Background()

	_, err := sess.Do(ctx, func(c *wizard.Controller) error {
		return c.Patch(form.SetGate{Section: form.AerialPPE, Gate: form.GateYes})
	})
	require.NoError(t, err)
	_, err = f.photos.Accept(ctx, sess, form.PhotoSlot{Section: form.AerialPPE, Question: form.KeyHarness}, "cinto.png", bytes.NewReader(pngBytes(t, 8, 8)))
	require.NoError(t, err)
	f.photos.Wait()
	require.Equal(t, 1, f.storage.count())

	var dropped []form.Photo
	view, err := sess.Do(ctx, func(c *wizard.Controller) error {
		before := c.State()
		if err := c.Patch(form.SetGate{Section: form.AerialPPE, Gate: form.GateNo}); err != nil {
			return err
		}
		dropped = before.PhotosDroppedBy(c.State())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Empty(t, view.State.PhotoList())

	f.photos.Discard(ctx, dropped...)
	assert.Zero(t, f.storage.count())
	assert.Equal(t, []string{dropped[0].StorageKey}, f.storage.deleted)
}
