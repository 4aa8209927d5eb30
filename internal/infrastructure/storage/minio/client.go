package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// ObjectAPI is the subset of object storage operations the catalog sources
// need. sdkAPI adapts *minio.Client; tests substitute a mock.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string) (minio.ObjectInfo, error)
	ReadObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
}

type sdkAPI struct {
	c *minio.Client
}

func (a sdkAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.c.BucketExists(ctx, bucketName)
}

func (a sdkAPI) StatObject(ctx context.Context, bucketName, objectName string) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
}

// ReadObject opens the object and stats it so a missing key fails here
// rather than on first Read.
func (a sdkAPI) ReadObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	obj, err := a.c.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// MinIOConfig holds connection parameters.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
}

// MinIOClient reads catalog objects from one bucket.
type MinIOClient struct {
	api    ObjectAPI
	config *MinIOConfig
	logger logging.Logger
}

// NewMinIOClient connects to the endpoint and verifies the bucket exists.
func NewMinIOClient(cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	applyDefaults(cfg)
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	c := NewMinIOClientWithAPI(sdkAPI{c: client}, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.HealthCheck(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)
	return c, nil
}

// NewMinIOClientWithAPI builds a client over an existing ObjectAPI.
func NewMinIOClientWithAPI(api ObjectAPI, cfg *MinIOConfig, log logging.Logger) *MinIOClient {
	applyDefaults(cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{api: api, config: cfg, logger: log.Named("minio")}
}

// Bucket returns the configured bucket name.
func (c *MinIOClient) Bucket() string { return c.config.Bucket }

// HealthStatus reports bucket reachability.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// HealthCheck verifies the bucket is reachable and exists.
func (c *MinIOClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	status := &HealthStatus{Healthy: err == nil && exists, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio").WithDetail(c.config.Bucket)
	}
	if !exists {
		status.Error = "bucket missing"
		return status, ErrBucketNotFound.WithDetail(c.config.Bucket)
	}
	return status, nil
}

// Ping adapts HealthCheck to a plain error for readiness probes.
func (c *MinIOClient) Ping(ctx context.Context) error {
	_, err := c.HealthCheck(ctx)
	return err
}

var (
	ErrBucketNotFound = errors.New(errors.ErrCodeNotFound, "bucket not found")
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
)

// Open returns a reader over objectName. Missing keys map to
// ErrObjectNotFound.
func (c *MinIOClient) Open(ctx context.Context, objectName string) (io.ReadCloser, minio.ObjectInfo, error) {
	info, err := c.api.StatObject(ctx, c.config.Bucket, objectName)
	if err != nil {
		return nil, info, c.classify(err, objectName)
	}
	rc, err := c.api.ReadObject(ctx, c.config.Bucket, objectName)
	if err != nil {
		return nil, info, c.classify(err, objectName)
	}
	return rc, info, nil
}

func (c *MinIOClient) classify(err error, objectName string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return ErrObjectNotFound.WithDetail(objectName).WithCause(err)
	case "NoSuchBucket":
		return ErrBucketNotFound.WithDetail(c.config.Bucket).WithCause(err)
	}
	return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "object storage request failed").WithDetail(objectName)
}
