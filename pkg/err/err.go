package errprocess

import (
	"errors"
	"fmt"

	"video_transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// Set log errMsg and return it as a plain error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log msg with the cause and return an error that still matches err via errors.Is / errors.As
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	logger.Log.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}
