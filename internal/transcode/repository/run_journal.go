package repository

import (
	"context"
	"fmt"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/database"

	"go.mongodb.org/mongo-driver/mongo"
)

// RunJournal keep one document per pipeline run, engine diagnostics included
type RunJournal interface {
	Save(ctx context.Context, entry domain.RunEntry) error
}

type mongoRunJournal struct {
	collection *mongo.Collection
}

// NewMongoRunJournal 將轉碼紀錄寫入 mongo collection
func NewMongoRunJournal(db *database.MongoDB, collection string) RunJournal {
	return &mongoRunJournal{collection: db.Collection(collection)}
}

func (j *mongoRunJournal) Save(ctx context.Context, entry domain.RunEntry) error {
	if _, err := j.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert run entry[%s]: %w", entry.SourceID, err)
	}
	return nil
}

type noopRunJournal struct{}

// NewNoopRunJournal journal used when mongo is disabled
func NewNoopRunJournal() RunJournal {
	return noopRunJournal{}
}

func (noopRunJournal) Save(context.Context, domain.RunEntry) error {
	return nil
}
