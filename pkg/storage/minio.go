package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/PhantomInTheWire/image-tiler/pkg/tileset"
)

// MinioConfig points at an S3-compatible bucket. Endpoint may be empty to
// use AWS itself; AccessKey may be empty to use the default credential chain.
type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// objectAPI is the subset of the S3 client the publisher needs.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher copies a tile directory into a bucket.
type Publisher struct {
	client objectAPI
	bucket string
	prefix string
	log    *slog.Logger
}

// NewPublisher builds an S3 client for cfg.
func NewPublisher(ctx context.Context, cfg MinioConfig, log *slog.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newPublisher(client, cfg.Bucket, cfg.Prefix, log), nil
}

func newPublisher(client objectAPI, bucket, prefix string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}
}

// PublishResult lists the object keys written and the files that failed.
type PublishResult struct {
	Uploaded []string
	Failed   map[string]error
}

// Publish uploads the tiles in dir, plus the manifest and the merged image
// when they exist. Individual upload failures are collected and reported
// together once every file has been tried.
func (p *Publisher) Publish(ctx context.Context, dir, mergedName string) (*PublishResult, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}

	set, err := tileset.Scan(dir)
	if err != nil {
		return nil, err
	}
	files := set.Paths()
	if set.Manifest != nil {
		files = append(files, filepath.Join(dir, tileset.ManifestName))
	}
	if mergedName != "" {
		merged := filepath.Join(dir, mergedName)
		if fi, err := os.Stat(merged); err == nil && !fi.IsDir() {
			files = append(files, merged)
		}
	}

	res := &PublishResult{Failed: make(map[string]error)}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key, err := p.upload(ctx, f)
		if err != nil {
			p.log.Error("upload failed", slog.String("file", filepath.Base(f)), slog.Any("error", err))
			res.Failed[f] = err
			continue
		}
		p.log.Info("uploaded", slog.String("bucket", p.bucket), slog.String("key", key))
		res.Uploaded = append(res.Uploaded, key)
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("storage: %d of %d uploads failed", len(res.Failed), len(files))
	}
	return res, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err == nil {
		return nil
	}
	if _, err := p.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(p.bucket)}); err != nil {
		return fmt.Errorf("storage: create bucket %s: %w", p.bucket, err)
	}
	p.log.Info("created bucket", slog.String("bucket", p.bucket))
	return nil
}

func (p *Publisher) upload(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := p.key(filepath.Base(file))
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (p *Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

func contentType(file string) string {
	if strings.EqualFold(filepath.Ext(file), ".json") {
		return "application/json"
	}
	return "image/png"
}
