package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"navexport/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var _ DocumentStore = (*S3Store)(nil)

// S3Store keeps documents as objects in one bucket. Folders are key
// prefixes, the document id is the object key and the version is its ETag.
// Works with any S3 compatible backend that honours conditional writes.
type S3Store struct {
	client     *s3.Client
	bucket     string
	httpClient aws.HTTPClient
	logger     *zap.Logger
}

type S3StoreOption func(*S3Store)

func WithLogger(logger *zap.Logger) S3StoreOption {
	return func(s *S3Store) {
		s.logger = logger
	}
}

// WithHTTPClient overrides the transport the SDK uses.
func WithHTTPClient(c aws.HTTPClient) S3StoreOption {
	return func(s *S3Store) {
		s.httpClient = c
	}
}

// NewS3Store builds a store from configuration. Static credentials are used
// when both keys are set, the default AWS credential chain otherwise.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, opts ...S3StoreOption) (*S3Store, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	store := &S3Store{
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if store.httpClient != nil {
			o.HTTPClient = store.httpClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return store, nil
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

func (s *S3Store) Find(ctx context.Context, folder, name string) (*Document, error) {
	key := ObjectKey(folder, name)

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up %s: %w", key, err)
	}

	f, n := splitKey(key)
	return &Document{ID: key, Name: n, Folder: f, Version: aws.ToString(out.ETag)}, nil
}

func (s *S3Store) Download(ctx context.Context, id string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("download %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return data, nil
}

func (s *S3Store) Create(ctx context.Context, folder, name string, data []byte) (*Document, error) {
	key := ObjectKey(folder, name)
	return s.put(ctx, key, data, &s3.PutObjectInput{IfNoneMatch: aws.String("*")})
}

func (s *S3Store) Update(ctx context.Context, id string, data []byte, ifMatch string) (*Document, error) {
	in := &s3.PutObjectInput{}
	if ifMatch != "" {
		in.IfMatch = aws.String(ifMatch)
	}
	return s.put(ctx, id, data, in)
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, in *s3.PutObjectInput) (*Document, error) {
	in.Bucket = aws.String(s.bucket)
	in.Key = aws.String(key)
	in.Body = bytes.NewReader(data)
	in.ContentLength = aws.Int64(int64(len(data)))
	in.ContentType = aws.String(contentTypeFor(key))

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("write %s: %w", key, ErrPreconditionFailed)
		}
		return nil, fmt.Errorf("failed to write %s: %w", key, err)
	}

	s.logger.Debug("stored document",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)

	folder, name := splitKey(key)
	return &Document{ID: key, Name: name, Folder: folder, Version: aws.ToString(out.ETag)}, nil
}

func contentTypeFor(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".xlsx") {
		return xlsxContentType
	}
	return "application/octet-stream"
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	return httpStatus(err) == http.StatusNotFound
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	status := httpStatus(err)
	return status == http.StatusPreconditionFailed || status == http.StatusConflict
}

func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
