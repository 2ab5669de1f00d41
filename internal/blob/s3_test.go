package blob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/philipmoss2002/life-app-sub008/internal/config"
)

func newStoreForPresign() *S3Store {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.S3Region = "us-east-1"
	cfg.S3AccessKey = "minioadmin"
	cfg.S3SecretKey = "minioadmin"
	cfg.S3BaseEndpoint = "http://127.0.0.1:9000"
	cfg.S3Bucket = "documents"
	return NewS3Store(cfg)
}

func stubPresignSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})
}

func TestS3Store_getPresignClient(t *testing.T) {
	store := newStoreForPresign()
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatalf("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}

	pc, err := store.getPresignClient(context.Background())
	if err != nil {
		t.Fatalf("getPresignClient err: %v", err)
	}
	if pc == nil {
		t.Fatalf("nil presign client")
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %q", capturedBaseEndpoint)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	if _, err = store.getPresignClient(context.Background()); err == nil || err.Error() != "load-fail" {
		t.Fatalf("expected load-fail, got %v", err)
	}
}

func TestS3Store_PresignPut(t *testing.T) {
	store := newStoreForPresign()
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var capturedBucket, capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedBucket = *in.Bucket
		capturedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://example.test/put"}, nil
	}

	key, url, err := store.PresignPut(context.Background())
	if err != nil {
		t.Fatalf("PresignPut err: %v", err)
	}
	if url != "https://example.test/put" {
		t.Fatalf("url mismatch: %q", url)
	}
	if capturedBucket != "documents" {
		t.Fatalf("bucket mismatch: %q", capturedBucket)
	}
	if key != capturedKey || !strings.HasPrefix(key, "attachments/") {
		t.Fatalf("unexpected key: %q (captured %q)", key, capturedKey)
	}
}

func TestS3Store_PresignGet(t *testing.T) {
	store := newStoreForPresign()
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Key != "attachments/2025/3/1/abc" {
			return nil, errors.New("unexpected key")
		}
		return &v4.PresignedHTTPRequest{URL: "https://example.test/get"}, nil
	}

	url, err := store.PresignGet(context.Background(), "attachments/2025/3/1/abc")
	if err != nil {
		t.Fatalf("PresignGet err: %v", err)
	}
	if url != "https://example.test/get" {
		t.Fatalf("url mismatch: %q", url)
	}
}

func TestRandomStorageKey_Unique(t *testing.T) {
	if RandomStorageKey() == RandomStorageKey() {
		t.Fatal("expected distinct keys")
	}
}
