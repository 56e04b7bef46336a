package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/arcmed/arcmed_backend/config"
)

// S3Store talks to the archive bucket. Uploads default to intelligent
// tiering so stale records age into cold storage on their own.
type S3Store struct {
	s3     *s3.Client
	presig *s3.PresignClient
	bucket string
}

var _ Store = (*S3Store)(nil)

// NewS3 creates the production store from config.
func NewS3(cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objstore: bucket name is required")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		s3:     cli,
		presig: s3.NewPresignClient(cli),
		bucket: cfg.Bucket,
	}, nil
}

func (c *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
		StorageClass:  types.StorageClassIntelligentTiering,
	})
	if err != nil {
		return c.wrap("put", key, err)
	}
	return nil
}

func (c *S3Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.wrap("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, newErr(KindTransient, "get", key, err)
	}
	return data, nil
}

func (c *S3Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.wrap("head", key, err)
	}

	info := &ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		IsCold:       isColdClass(out.StorageClass, out.ArchiveStatus),
		RestoreState: parseRestoreHeader(out.Restore),
	}
	return info, nil
}

func (c *S3Store) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// DeleteObject on a missing key already succeeds on S3; anything
		// surfacing NotFound here is treated as done.
		if werr := c.wrap("delete", key, err); !IsNotFound(werr) {
			return werr
		}
	}
	return nil
}

func (c *S3Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	src := c.bucket + "/" + srcKey
	_, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(dstKey),
		CopySource:   aws.String(url.PathEscape(src)),
		StorageClass: types.StorageClassIntelligentTiering,
	})
	if err != nil {
		return c.wrap("copy", srcKey, err)
	}
	return nil
}

func (c *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	req, err := c.presig.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", c.wrap("presign", key, err)
	}
	return req.URL, nil
}

func (c *S3Store) InitiateRestore(ctx context.Context, key string, tier RestoreTier) error {
	_, err := c.s3.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(7),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.Tier(tier),
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		// A restore already in flight is not a failure for our callers.
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "RestoreAlreadyInProgress" {
			return nil
		}
		return c.wrap("restore", key, err)
	}
	return nil
}

func (c *S3Store) wrap(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return newErr(KindNotFound, op, key, err)
		case "AccessDenied", "Forbidden":
			return newErr(KindAccessDenied, op, key, err)
		case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
			return newErr(KindTransient, op, key, err)
		}
		return newErr(KindOther, op, key, err)
	}
	// Network-level failures without an API error code.
	return newErr(KindTransient, op, key, err)
}

func isColdClass(sc types.StorageClass, as types.ArchiveStatus) bool {
	switch sc {
	case types.StorageClassGlacier, types.StorageClassDeepArchive, types.StorageClassGlacierIr:
		return true
	}
	// Intelligent-tiering objects report cold via archive status instead.
	switch as {
	case types.ArchiveStatusArchiveAccess, types.ArchiveStatusDeepArchiveAccess:
		return true
	}
	return false
}

// parseRestoreHeader derives the restore state from the x-amz-restore header:
// absent → none, ongoing-request="true" → restoring, otherwise → available.
func parseRestoreHeader(restore *string) RestoreState {
	if restore == nil || *restore == "" {
		return RestoreNone
	}
	if strings.Contains(*restore, `ongoing-request="true"`) {
		return RestoreRestoring
	}
	return RestoreAvailable
}
