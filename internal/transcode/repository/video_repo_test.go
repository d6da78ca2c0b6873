package repository

import (
	"context"
	"testing"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Owner{}))
	require.NoError(t, NewVideoRepo(db).AutoMigrate())
	return db
}

var testRenditions = domain.RenditionPaths{
	"/artifacts/720p-clip.mp4",
	"/artifacts/480p-clip.mp4",
	"/artifacts/360p-clip.mp4",
}

func TestVideoRepo_InsertVideo(t *testing.T) {
	ctx := context.Background()

	t.Run("寫入成功", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Create(&domain.Owner{MemberID: "m-1", Username: "alice"}).Error)
		repo := NewVideoRepo(db)

		video, err := repo.InsertVideo(ctx, "m-1", "clip.mp4", "/artifacts/thumbnail-clip.png", testRenditions)
		require.NoError(t, err)
		assert.NotZero(t, video.ID)
		assert.NotZero(t, video.UserID)
		assert.False(t, video.CreatedAt.IsZero())

		stored, err := repo.GetByID(ctx, video.ID)
		require.NoError(t, err)
		assert.Equal(t, "clip.mp4", stored.OriginalFilename)
		assert.Equal(t, "/artifacts/thumbnail-clip.png", stored.Thumbnail)
		assert.Equal(t, testRenditions[0], stored.Path720p)
		assert.Equal(t, testRenditions[1], stored.Path480p)
		assert.Equal(t, testRenditions[2], stored.Path360p)
	})

	t.Run("會員不存在", func(t *testing.T) {
		repo := NewVideoRepo(newTestDB(t))

		video, err := repo.InsertVideo(ctx, "ghost", "clip.mp4", "thumb.png", testRenditions)
		assert.Nil(t, video)
		require.ErrorIs(t, err, domain.ErrRecord)

		var re *domain.RecordError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, domain.RecordUserNotFound, re.Reason)
	})

	t.Run("資料表不存在時為 storage write failure", func(t *testing.T) {
		db, err := database.NewSQLiteConnection(":memory:")
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(&domain.Owner{}))
		require.NoError(t, db.Create(&domain.Owner{MemberID: "m-1", Username: "alice"}).Error)

		_, err = NewVideoRepo(db).InsertVideo(ctx, "m-1", "clip.mp4", "thumb.png", testRenditions)

		var re *domain.RecordError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, domain.RecordStorageWrite, re.Reason)
	})
}

func TestVideoRepo_ListByMember(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&domain.Owner{MemberID: "m-1", Username: "alice"}).Error)
	require.NoError(t, db.Create(&domain.Owner{MemberID: "m-2", Username: "bob"}).Error)
	repo := NewVideoRepo(db)

	first, err := repo.InsertVideo(ctx, "m-1", "a.mp4", "a.png", testRenditions)
	require.NoError(t, err)
	second, err := repo.InsertVideo(ctx, "m-1", "b.mp4", "b.png", testRenditions)
	require.NoError(t, err)
	_, err = repo.InsertVideo(ctx, "m-2", "c.mp4", "c.png", testRenditions)
	require.NoError(t, err)

	videos, err := repo.ListByMember(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, second.ID, videos[0].ID)
	assert.Equal(t, first.ID, videos[1].ID)

	none, err := repo.ListByMember(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
