package repository

import (
	"context"
	"errors"

	"video_transcode_service/internal/transcode/domain"

	"gorm.io/gorm"
)

// VideoRepo definition video record storage
type VideoRepo interface {
	AutoMigrate() error
	InsertVideo(ctx context.Context, memberID, originalFilename, thumbnail string, renditions domain.RenditionPaths) (*domain.Video, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.Video, error)
	GetByID(ctx context.Context, id uint) (*domain.Video, error)
}

type videoRepo struct {
	db *gorm.DB
}

// NewVideoRepo create VideoRepo
func NewVideoRepo(db *gorm.DB) VideoRepo {
	return &videoRepo{db: db}
}

// AutoMigrate 建立或更新 videos 資料表, member 資料表由 member 服務負責
func (r *videoRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Video{})
}

// InsertVideo 查詢擁有者並寫入一筆影片紀錄, 兩者在同一個 transaction.
// Missing owner is RecordUserNotFound, any other database error RecordStorageWrite.
func (r *videoRepo) InsertVideo(ctx context.Context, memberID, originalFilename, thumbnail string, renditions domain.RenditionPaths) (*domain.Video, error) {
	var video *domain.Video
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner domain.Owner
		if err := tx.Where("member_id = ?", memberID).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewRecordError(domain.RecordUserNotFound, err)
			}
			return domain.NewRecordError(domain.RecordStorageWrite, err)
		}

		v := &domain.Video{
			UserID:           owner.ID,
			OriginalFilename: originalFilename,
			Thumbnail:        thumbnail,
			Path720p:         renditions[0],
			Path480p:         renditions[1],
			Path360p:         renditions[2],
		}
		if err := tx.Create(v).Error; err != nil {
			return domain.NewRecordError(domain.RecordStorageWrite, err)
		}
		video = v
		return nil
	})
	if err != nil {
		var re *domain.RecordError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, domain.NewRecordError(domain.RecordStorageWrite, err)
	}
	return video, nil
}

// ListByMember 取得會員的所有影片, 最新的在前
func (r *videoRepo) ListByMember(ctx context.Context, memberID string) ([]domain.Video, error) {
	var videos []domain.Video
	err := r.db.WithContext(ctx).
		Joins("JOIN member ON member.id = videos.user_id").
		Where("member.member_id = ?", memberID).
		Order("videos.upload_date DESC, videos.id DESC").
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// GetByID get Video by id
func (r *videoRepo) GetByID(ctx context.Context, id uint) (*domain.Video, error) {
	var v domain.Video
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
