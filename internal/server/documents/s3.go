package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config holds the connection settings for an S3 compatible endpoint.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store keeps one JSON object per document under "<collection>/<key>.json".
type S3Store struct {
	api    S3API
	bucket string
}

type s3Object struct {
	Data            map[string]any `json:"data"`
	ServerUpdatedAt time.Time      `json:"serverUpdatedAt"`
}

func NewS3Store(api S3API, bucket string) *S3Store {
	return &S3Store{api: api, bucket: bucket}
}

// OpenS3 builds an S3 client with static credentials. Path-style addressing
// is used so MinIO endpoints work without DNS buckets.
func OpenS3(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})
	return NewS3Store(client, c.Bucket), nil
}

func objectKey(collection, key string) string {
	return collection + "/" + url.PathEscape(key) + ".json"
}

func keyFromObject(collection, objKey string) (string, bool) {
	name, ok := strings.CutPrefix(objKey, collection+"/")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok || strings.Contains(name, "/") {
		return "", false
	}
	key, err := url.PathUnescape(name)
	if err != nil {
		return "", false
	}
	return key, true
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

func (s *S3Store) Put(ctx context.Context, doc Document) (bool, error) {
	k := objectKey(doc.Collection, doc.Key)

	created := false
	if _, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &k}); err != nil {
		if !isNotFound(err) {
			return false, fmt.Errorf("s3 head %s: %w", k, err)
		}
		created = true
	}

	body, err := json.Marshal(s3Object{Data: doc.clone().Data, ServerUpdatedAt: doc.UpdatedAt})
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &k,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return false, fmt.Errorf("s3 put %s: %w", k, err)
	}
	return created, nil
}

func (s *S3Store) List(ctx context.Context, collection string) ([]Document, error) {
	prefix := collection + "/"
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix})

	var out []Document
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key, ok := keyFromObject(collection, aws.ToString(obj.Key))
			if !ok {
				continue
			}
			doc, err := s.get(ctx, collection, key, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
	}
	sortByWrite(out)
	return out, nil
}

func (s *S3Store) get(ctx context.Context, collection, key, objKey string) (Document, error) {
	res, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &objKey})
	if err != nil {
		return Document{}, fmt.Errorf("s3 get %s: %w", objKey, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Document{}, fmt.Errorf("s3 read %s: %w", objKey, err)
	}
	var o s3Object
	if err := json.Unmarshal(raw, &o); err != nil {
		return Document{}, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return Document{Collection: collection, Key: key, Data: o.Data, UpdatedAt: o.ServerUpdatedAt}.clone(), nil
}
