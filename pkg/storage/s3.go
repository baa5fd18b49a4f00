package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	// MaxVideoFileSize is the maximum allowed size for recorded video uploads (500MB).
	MaxVideoFileSize = 500 * 1024 * 1024
	// MaxMaterialFileSize is the maximum allowed size for study material uploads (50MB).
	MaxMaterialFileSize = 50 * 1024 * 1024
	// FolderVideos is the S3 prefix for recorded video objects.
	FolderVideos = "videos"
	// FolderMaterials is the S3 prefix for material objects.
	FolderMaterials = "materials"
)

// AllowedMaterialTypes maps accepted material MIME types to extensions.
var AllowedMaterialTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-powerpoint":                                             ".ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"text/plain": ".txt",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ValidateVideoType returns true for any video MIME type.
func ValidateVideoType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "video/")
}

// ValidateMaterialType returns true if the content type is allowed for materials.
func ValidateMaterialType(contentType string) bool {
	_, ok := AllowedMaterialTypes[strings.ToLower(contentType)]
	return ok
}

// VideoKey returns the S3 object key for a recorded video: videos/{video_id}/{filename}.
func VideoKey(videoID, filename string) string {
	return path.Join(FolderVideos, videoID, path.Base(filename))
}

// MaterialKey returns the S3 object key for a material: materials/{material_id}/{filename}.
func MaterialKey(materialID, filename string) string {
	return path.Join(FolderMaterials, materialID, path.Base(filename))
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	VideosBucket    string
	MaterialsBucket string
}

// S3 is the blob store collaborator: store an uploaded payload, hand back a
// retrievable URL, delete it again on entity removal.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts for streaming large video uploads
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// VideosBucket returns the recorded videos bucket name.
func (s *S3) VideosBucket() string { return s.cfg.VideosBucket }

// MaterialsBucket returns the materials bucket name.
func (s *S3) MaterialsBucket() string { return s.cfg.MaterialsBucket }

// PublicObjectURL returns the public URL for an object (buckets are public-read).
func (s *S3) PublicObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key)
}

// Upload streams a reader to S3 and returns the object's public URL.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
		ACL:           types.ObjectCannedACLPublicRead,
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return s.PublicObjectURL(bucket, key), nil
}

// UploadVideo streams a recorded video to the videos bucket.
func (s *S3) UploadVideo(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	return s.Upload(ctx, s.cfg.VideosBucket, key, contentType, body, contentLength)
}

// UploadMaterial streams a study material to the materials bucket.
func (s *S3) UploadMaterial(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	return s.Upload(ctx, s.cfg.MaterialsBucket, key, contentType, body, contentLength)
}

// DeleteObject removes an object from S3.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
