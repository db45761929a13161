package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/campusride/campusride-backend/internal/config"
)

// MaxImageSize bounds uploaded vehicle photos.
const MaxImageSize = 5 << 20

// Storage saves uploaded images in S3 when configured, otherwise on local disk.
type Storage struct {
	useS3    bool
	bucket   string
	region   string
	s3Client *s3.S3
	uploader *s3manager.Uploader

	uploadDir string
	baseURL   string
}

func InitStorage(cfg *config.Config) (*Storage, error) {
	if cfg.S3Enabled() {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}

		log.Println("AWS S3 storage initialized")
		return &Storage{
			useS3:    true,
			bucket:   cfg.AWSS3Bucket,
			region:   cfg.AWSRegion,
			s3Client: s3.New(sess),
			uploader: s3manager.NewUploader(sess),
		}, nil
	}

	return NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
}

// NewLocalStorage stores files under dir and serves them from baseURL/uploads.
func NewLocalStorage(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	log.Println("AWS S3 not configured. Using local file storage")
	return &Storage{uploadDir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Storage) UsingS3() bool {
	return s.useS3
}

// UploadDir is the local directory served under /uploads. Empty when using S3.
func (s *Storage) UploadDir() string {
	return s.uploadDir
}

// UploadImage stores an image under folder and returns its public URL.
func (s *Storage) UploadImage(file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > MaxImageSize {
		return "", fmt.Errorf("%w: image larger than %d bytes", ErrUnsupportedFile, MaxImageSize)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, src); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType := http.DetectContentType(buffer.Bytes())
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, contentType)
	}

	key := fmt.Sprintf("%s/%d%s", folder, time.Now().UnixNano(), strings.ToLower(filepath.Ext(file.Filename)))

	if s.useS3 {
		return s.uploadToS3(key, buffer.Bytes(), contentType)
	}
	return s.uploadLocally(key, buffer.Bytes())
}

func (s *Storage) uploadToS3(key string, data []byte, contentType string) (string, error) {
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *Storage) uploadLocally(key string, data []byte) (string, error) {
	path := filepath.Join(s.uploadDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, key), nil
}

// DeleteImage removes an image previously returned by UploadImage.
// URLs that do not belong to this storage are ignored.
func (s *Storage) DeleteImage(imageURL string) error {
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}

	if s.useS3 {
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	}

	err := os.Remove(filepath.Join(s.uploadDir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Storage) keyFromURL(imageURL string) (string, bool) {
	var prefix string
	if s.useS3 {
		prefix = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	} else {
		prefix = s.baseURL + "/uploads/"
	}
	if !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(imageURL, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
