package database

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClientRepo definition object storage operations
type MinIOClientRepo interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string) error
	DownloadFile(ctx context.Context, objectName, destPath string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// MinIOClient definition minio client
type MinIOClient struct {
	Client     *minio.Client
	BucketName string
}

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	var mc *MinIOClient
	err := withRetry(d.RetryCount, d.RetryInterval, func(attempt int) error {
		var err error
		mc, err = NewMinioClient(d.Endpoint, d.User, d.Password, d.BucketName, d.UseSSL)
		if err != nil {
			log.Printf("minIO[%s] 連線失敗 (嘗試 %d/%d): %v", d.Endpoint, attempt, d.RetryCount, err)
		}
		return err
	})
	return mc, err
}

// NewMinioClient create a new minio client and make sure the bucket exists
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOClient, error) {
	minioClient, err := minio.New(endpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket [%s]: %w", bucketName, err)
	}

	if !exists {
		if err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket [%s]: %w", bucketName, err)
		}
		log.Printf("Bucket [%s] 建立成功", bucketName)
	}

	return &MinIOClient{
		Client:     minioClient,
		BucketName: bucketName,
	}, nil
}

// UploadFile put a local file under objectName
func (m *MinIOClient) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	_, err = m.Client.PutObject(ctx, m.BucketName, objectName, file, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// DownloadFile fetch objectName into destPath
func (m *MinIOClient) DownloadFile(ctx context.Context, objectName, destPath string) error {
	obj, err := m.Client.GetObject(ctx, m.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, obj)
	return err
}

// PresignGetURL 生成一個 Presigned URL 用來獲取指定的 object
func (m *MinIOClient) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := m.Client.PresignedGetObject(ctx, m.BucketName, objectName, expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return presignedURL.String(), nil
}
