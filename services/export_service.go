package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sahilchouksey/post-views-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExportConfig holds configuration for the S3-compatible export target
type ExportConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// ExportService moves view-count data in and out of S3-compatible object
// storage. Backs the export/import custom actions of the other settings
// group.
type ExportService struct {
	db       *gorm.DB
	s3Client *s3.S3
	bucket   string
}

// NewExportService creates a new export service
func NewExportService(db *gorm.DB, config ExportConfig) (*ExportService, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create export session: %w", err)
	}

	return &ExportService{
		db:       db,
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
	}, nil
}

// exportDocument is the serialized shape of one export object
type exportDocument struct {
	ExportedAt time.Time        `json:"exported_at"`
	Rows       []model.PostView `json:"rows"`
}

// ExportViews serializes all aggregate buckets and uploads them as a single
// JSON object. Returns the object key.
func (s *ExportService) ExportViews(ctx context.Context) (string, error) {
	var rows []model.PostView
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return "", fmt.Errorf("failed to read view data: %w", err)
	}

	doc := exportDocument{
		ExportedAt: time.Now().UTC(),
		Rows:       rows,
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/post-views-%s.json", doc.ExportedAt.Format("20060102-150405"))

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(payload)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	return key, nil
}

// ImportViews downloads a previously exported object and merges its
// aggregate buckets into post_views, adding counts to existing buckets
func (s *ExportService) ImportViews(ctx context.Context, key string) (int, error) {
	result, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download import object: %w", err)
	}
	defer result.Body.Close()

	payload, err := io.ReadAll(result.Body)
	if err != nil {
		return 0, err
	}

	var doc exportDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0, fmt.Errorf("malformed import object: %w", err)
	}

	if len(doc.Rows) == 0 {
		return 0, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range doc.Rows {
			row := model.PostView{
				PostID: doc.Rows[i].PostID,
				Type:   doc.Rows[i].Type,
				Period: doc.Rows[i].Period,
				Count:  doc.Rows[i].Count,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "post_id"}, {Name: "type"}, {Name: "period"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"count": gorm.Expr("post_views.count + EXCLUDED.count"),
				}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(doc.Rows), nil
}
