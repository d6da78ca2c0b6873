//go:build integration

package repository

import (
	"context"
	"testing"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/database"
	"video_transcode_service/pkg/logger"
	testtool "video_transcode_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoRepo_Postgres(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	container, dsn, err := testtool.StartPostgres(ctx)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	db, err := database.NewPGConnection(database.Connection{ConnectStr: dsn, RetryCount: 5, RetryInterval: 1})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Owner{}))

	repo := NewVideoRepo(db)
	require.NoError(t, repo.AutoMigrate())
	require.NoError(t, db.Create(&domain.Owner{MemberID: "m-1", Username: "alice"}).Error)

	video, err := repo.InsertVideo(ctx, "m-1", "clip.mp4", "thumb.png", testRenditions)
	require.NoError(t, err)

	videos, err := repo.ListByMember(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, video.ID, videos[0].ID)

	_, err = repo.InsertVideo(ctx, "ghost", "clip.mp4", "thumb.png", testRenditions)
	var re *domain.RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, domain.RecordUserNotFound, re.Reason)
}
