package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/GoArmGo/GeoPhoto/internal/logger"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
	"github.com/GoArmGo/GeoPhoto/internal/metadata"
	"github.com/GoArmGo/GeoPhoto/internal/testutil"
)

var uploadTime = time.Date(2025, 5, 20, 10, 15, 30, 123456789, time.UTC)

type photoFixture struct {
	uc        PhotoUseCase
	photos    *fakePhotos
	blobs     *flakyBlobs
	legacy    *fakeLegacy
	publisher *recordingPublisher
	owner     domain.Principal
}

func newPhotoFixture(t *testing.T, extractor ports.MetadataExtractor) *photoFixture {
	t.Helper()
	if extractor == nil {
		extractor = metadata.NewExtractor()
	}
	f := &photoFixture{
		photos:    newFakePhotos(),
		blobs:     newFlakyBlobs(),
		legacy:    &fakeLegacy{},
		publisher: &recordingPublisher{},
		owner:     domain.Principal{UserID: uuid.New(), Username: "linh", Role: domain.RoleUser},
	}
	f.uc = NewPhotoUseCase(PhotoDeps{
		Photos:    f.photos,
		Blobs:     f.blobs,
		Legacy:    f.legacy,
		Extractor: extractor,
		Cleanup:   f.publisher,
		Clock:     testutil.FixedClock{T: uploadTime},
		Keys:      &testutil.SequenceKeys{},
		Logger:    logger.Discard(),
	})
	return f
}

func (f *photoFixture) upload(t *testing.T, data []byte, contentType, name, description string) *domain.Photo {
	t.Helper()
	photo, err := f.uc.UploadPhoto(context.Background(), f.owner, UploadInput{
		Content:      bytes.NewReader(data),
		ContentType:  contentType,
		OriginalName: name,
		Description:  description,
	})
	require.NoError(t, err)
	require.NotNil(t, photo)
	return photo
}

func (f *photoFixture) assertNothingWritten(t *testing.T) {
	t.Helper()
	assert.Empty(t, f.blobs.Keys(), "no blob must be written")
	assert.Zero(t, f.photos.count(), "no record must be written")
}

func TestUploadLargeJPEGWithGPS(t *testing.T) {
	f := newPhotoFixture(t, nil)
	data := testutil.JPEGWithExif(testutil.ExifOptions{
		HasGPS: true, LatE4: 160544, LatRef: "N", LonE4: 1082022, LonRef: "E",
		CapturedAt: "2024:12:24 18:45:00",
		PadTo:      2 << 20,
	})

	photo := f.upload(t, data, "image/jpeg", "beach.jpg", "")

	assert.Equal(t, "key-1.jpg", photo.StorageKey)
	assert.Equal(t, "/api/photos/image/key-1.jpg", photo.URL)
	assert.Equal(t, "beach.jpg", photo.OriginalName)
	assert.Equal(t, f.owner.UserID, photo.OwnerID)
	assert.Nil(t, photo.Description)
	require.NotNil(t, photo.Latitude)
	require.NotNil(t, photo.Longitude)
	assert.InDelta(t, 16.0544, *photo.Latitude, 1e-9)
	assert.InDelta(t, 108.2022, *photo.Longitude, 1e-9)
	require.NotNil(t, photo.CapturedAt)
	assert.True(t, time.Date(2024, 12, 24, 18, 45, 0, 0, time.UTC).Equal(*photo.CapturedAt))
	assert.Equal(t, uploadTime.Truncate(time.Microsecond), photo.UploadedAt)

	blob, err := f.blobs.Open(context.Background(), photo.StorageKey)
	require.NoError(t, err)
	defer blob.Body.Close()
	stored, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	assert.Equal(t, data, stored, "blob holds the full upload")
	assert.Equal(t, f.owner.UserID.String(), blob.OwnerID)
	assert.Equal(t, "image/jpeg", blob.ContentType)

	saved, err := f.photos.GetPhotoByID(context.Background(), photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo, saved)
}

func TestUploadReadsBlobOncePerField(t *testing.T) {
	f := newPhotoFixture(t, nil)
	f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")
	assert.Equal(t, 2, f.blobs.opens)
}

func TestUploadPNGWithDescription(t *testing.T) {
	f := newPhotoFixture(t, nil)

	photo := f.upload(t, testutil.PNGWithoutExif(), "image/png", "map.png", "test")

	assert.Equal(t, "key-1.png", photo.StorageKey)
	require.NotNil(t, photo.Description)
	assert.Equal(t, "test", *photo.Description)
	assert.Nil(t, photo.Location())
	assert.Nil(t, photo.CapturedAt)
	assert.Equal(t, 1, f.photos.count())
}

func TestUploadWithoutExtension(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "snapshot", "")
	assert.Equal(t, "key-1", photo.StorageKey)
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		reason      string
	}{
		{"empty file", nil, "image/jpeg", "empty"},
		{"empty file checked before type", nil, "text/plain", "empty"},
		{"not an image", []byte("hello"), "text/plain", "image"},
		{"missing content type", testutil.PlainJPEG(), "", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPhotoFixture(t, nil)
			_, err := f.uc.UploadPhoto(context.Background(), f.owner, UploadInput{
				Content:      bytes.NewReader(tt.data),
				ContentType:  tt.contentType,
				OriginalName: "x.jpg",
			})

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Reason, tt.reason)
			f.assertNothingWritten(t)
			assert.Zero(t, f.blobs.opens)
		})
	}
}

func TestUploadBlobFailureWritesNoRecord(t *testing.T) {
	f := newPhotoFixture(t, nil)
	f.blobs.storeErr = errBoom

	_, err := f.uc.UploadPhoto(context.Background(), f.owner, UploadInput{
		Content: bytes.NewReader(testutil.PlainJPEG()), ContentType: "image/jpeg", OriginalName: "a.jpg",
	})

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.ErrorIs(t, err, errBoom)
	f.assertNothingWritten(t)
}

func TestUploadRecordFailureRemovesBlob(t *testing.T) {
	f := newPhotoFixture(t, nil)
	f.photos.saveErr = errBoom

	_, err := f.uc.UploadPhoto(context.Background(), f.owner, UploadInput{
		Content: bytes.NewReader(testutil.PlainJPEG()), ContentType: "image/jpeg", OriginalName: "a.jpg",
	})

	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.blobs.Keys())
	assert.Equal(t, []string{"key-1.jpg"}, f.blobs.deletes)
	assert.Empty(t, f.publisher.jobs)
}

func TestUploadRecordFailureQueuesCleanupWhenBlobStays(t *testing.T) {
	f := newPhotoFixture(t, nil)
	f.photos.saveErr = errBoom
	f.blobs.deleteErr = errors.New("bucket unavailable")

	_, err := f.uc.UploadPhoto(context.Background(), f.owner, UploadInput{
		Content: bytes.NewReader(testutil.PlainJPEG()), ContentType: "image/jpeg", OriginalName: "a.jpg",
	})

	require.Error(t, err)
	require.Len(t, f.publisher.jobs, 1)
	assert.Equal(t, payloads.CleanupKindBlob, f.publisher.jobs[0].Kind)
	assert.Equal(t, "key-1.jpg", f.publisher.jobs[0].Key)
}

func TestUploadSurvivesExtractorPanic(t *testing.T) {
	f := newPhotoFixture(t, panickingExtractor{})

	photo := f.upload(t, testutil.JPEGWithExif(testutil.ExifOptions{HasGPS: true, LatE4: 1, LatRef: "N", LonE4: 1, LonRef: "E"}),
		"image/jpeg", "a.jpg", "")

	assert.Nil(t, photo.Location())
	assert.Nil(t, photo.CapturedAt)
	assert.Equal(t, 1, f.photos.count())
}

func TestUploadKeysAreDistinct(t *testing.T) {
	f := newPhotoFixture(t, nil)
	a := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "same.jpg", "")
	b := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "same.jpg", "")
	assert.NotEqual(t, a.StorageKey, b.StorageKey)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestListPhotos(t *testing.T) {
	f := newPhotoFixture(t, nil)
	f.upload(t, testutil.PlainJPEG(), "image/jpeg", "plain.jpg", "")
	f.upload(t, testutil.JPEGWithExif(testutil.ExifOptions{HasGPS: true, LatE4: 210285, LatRef: "N", LonE4: 1058542, LonRef: "E"}),
		"image/jpeg", "gps.jpg", "")

	all, err := f.uc.ListPhotos(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	withGPS, err := f.uc.ListPhotosWithGPS(context.Background(), f.owner)
	require.NoError(t, err)
	require.Len(t, withGPS, 1)
	assert.Equal(t, "gps.jpg", withGPS[0].OriginalName)

	stranger := domain.Principal{UserID: uuid.New(), Username: "other", Role: domain.RoleUser}
	none, err := f.uc.ListPhotos(context.Background(), stranger)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetPhotoOwnership(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")

	got, err := f.uc.GetPhoto(context.Background(), f.owner, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, got.ID)

	stranger := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}
	_, err = f.uc.GetPhoto(context.Background(), stranger, photo.ID)
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	admin := domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}
	got, err = f.uc.GetPhoto(context.Background(), admin, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, got.ID)

	_, err = f.uc.GetPhoto(context.Background(), f.owner, uuid.New())
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestServeImage(t *testing.T) {
	f := newPhotoFixture(t, nil)
	data := testutil.PNGWithoutExif()
	photo := f.upload(t, data, "image/png", "a.png", "")

	for i := 0; i < 2; i++ {
		blob, err := f.uc.ServeImage(context.Background(), photo.StorageKey)
		require.NoError(t, err)
		got, err := io.ReadAll(blob.Body)
		require.NoError(t, err)
		require.NoError(t, blob.Body.Close())
		assert.Equal(t, data, got, "serving is repeatable")
		assert.Equal(t, "image/png", blob.ContentType)
	}

	_, err := f.uc.ServeImage(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestServeImageDefaultsContentType(t *testing.T) {
	f := newPhotoFixture(t, nil)
	require.NoError(t, f.blobs.Store(context.Background(), "raw", strings.NewReader("x"), "application/octet-stream", ""))

	blob, err := f.uc.ServeImage(context.Background(), "raw")
	require.NoError(t, err)
	defer blob.Body.Close()
	assert.Equal(t, "image/jpeg", blob.ContentType)
}

// seed кладёт запись напрямую, минуя загрузку
func (f *photoFixture) seed(t *testing.T, url string) *domain.Photo {
	t.Helper()
	p := &domain.Photo{ID: uuid.New(), OwnerID: f.owner.UserID, URL: url, OriginalName: "old.jpg", UploadedAt: uploadTime}
	require.NoError(t, f.photos.SavePhoto(context.Background(), p))
	return p
}

func TestDeleteCurrentPhoto(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")

	require.NoError(t, f.uc.DeletePhoto(context.Background(), f.owner, photo.ID))

	assert.Empty(t, f.blobs.Keys())
	assert.Zero(t, f.photos.count())
	assert.Empty(t, f.legacy.removed)
}

func TestDeleteKeepsRecordWhenBlobDeleteFails(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")
	f.blobs.deleteErr = errBoom

	err := f.uc.DeletePhoto(context.Background(), f.owner, photo.ID)

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, 1, f.photos.count())
}

func TestDeleteLegacyPhoto(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.seed(t, "/uploads/2019-holiday.jpg")

	require.NoError(t, f.uc.DeletePhoto(context.Background(), f.owner, photo.ID))

	assert.Equal(t, []string{"2019-holiday.jpg"}, f.legacy.removed)
	assert.Empty(t, f.blobs.deletes)
	assert.Zero(t, f.photos.count())
	assert.Empty(t, f.publisher.jobs)
}

func TestDeleteLegacyFailureStillDeletesRecord(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.seed(t, "/uploads/locked.jpg")
	f.legacy.err = errors.New("permission denied")

	require.NoError(t, f.uc.DeletePhoto(context.Background(), f.owner, photo.ID))

	assert.Zero(t, f.photos.count())
	require.Len(t, f.publisher.jobs, 1)
	assert.Equal(t, payloads.CleanupKindLegacyFile, f.publisher.jobs[0].Kind)
	assert.Equal(t, "locked.jpg", f.publisher.jobs[0].Key)
}

func TestDeleteLegacyInvalidNameIsNotQueued(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.seed(t, "/uploads/../etc/passwd")
	f.legacy.err = ports.ErrInvalidFileName

	require.NoError(t, f.uc.DeletePhoto(context.Background(), f.owner, photo.ID))
	assert.Zero(t, f.photos.count())
	assert.Empty(t, f.publisher.jobs)
}

func TestDeleteUnknownURLForm(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.seed(t, "https://cdn.example.com/a.jpg")

	require.NoError(t, f.uc.DeletePhoto(context.Background(), f.owner, photo.ID))

	assert.Zero(t, f.photos.count())
	assert.Empty(t, f.blobs.deletes)
	assert.Empty(t, f.legacy.removed)
}

func TestDeleteOtherOwnersPhoto(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")

	stranger := domain.Principal{UserID: uuid.New(), Role: domain.RoleUser}
	err := f.uc.DeletePhoto(context.Background(), stranger, photo.ID)

	assert.ErrorIs(t, err, ErrPhotoNotFound)
	assert.Equal(t, 1, f.photos.count())
	assert.Len(t, f.blobs.Keys(), 1)
}

func TestUpdateLocation(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")
	lat, lon := 21.0285, 105.8542

	updated, err := f.uc.UpdateLocation(context.Background(), f.owner, photo.ID, &lat, &lon)
	require.NoError(t, err)
	assert.Equal(t, &domain.GeoPoint{Latitude: 21.0285, Longitude: 105.8542}, updated.Location())

	stored, err := f.photos.GetPhotoByID(context.Background(), photo.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Location(), stored.Location())
	assert.Equal(t, photo.URL, stored.URL)
}

func TestUpdateLocationRequiresBothCoordinates(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")
	lat := 10.0

	for _, args := range [][2]*float64{{&lat, nil}, {nil, &lat}, {nil, nil}} {
		_, err := f.uc.UpdateLocation(context.Background(), f.owner, photo.ID, args[0], args[1])
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	}
	assert.Zero(t, f.photos.updates)
}

func TestUpdateLocationPhotoDeletedConcurrently(t *testing.T) {
	f := newPhotoFixture(t, nil)
	photo := f.upload(t, testutil.PlainJPEG(), "image/jpeg", "a.jpg", "")
	lat, lon := 16.0544, 108.2022

	f.photos.beforeUpdate = func() {
		require.NoError(t, f.photos.DeletePhoto(context.Background(), photo.ID))
	}

	_, err := f.uc.UpdateLocation(context.Background(), f.owner, photo.ID, &lat, &lon)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
	assert.Equal(t, 1, f.photos.updates)
}

func TestUpdateLocationMissingPhoto(t *testing.T) {
	f := newPhotoFixture(t, nil)
	lat, lon := 1.0, 2.0

	_, err := f.uc.UpdateLocation(context.Background(), f.owner, uuid.New(), &lat, &lon)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
	assert.Zero(t, f.photos.updates)
}
