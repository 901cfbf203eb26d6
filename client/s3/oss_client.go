package s3

import (
	"context"
	"io"
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

var (
	ActiveBucket  *oss.Bucket
	GetObjectFunc func(context.Context, string, ...oss.Option) (io.ReadCloser, error)
	PutObjectFunc func(context.Context, string, io.Reader, ...oss.Option) error
)

func Bootstrap() error {
	bucket, err := BuildBucketFromEnv()
	if err != nil {
		return err
	}
	ActiveBucket = bucket
	GetObjectFunc = GetObject
	PutObjectFunc = PutObject
	return nil
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "docflow"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accesskey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accesskey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}
	return cli.Bucket(bucketName)
}

func GetObject(ctx context.Context, key string, opts ...oss.Option) (io.ReadCloser, error) {
	span := startSpan(ctx, "get-object", key)
	r, err := ActiveBucket.GetObject(key, opts...)
	finishSpan(span, err)
	return r, err
}

func PutObject(ctx context.Context, key string, r io.Reader, opts ...oss.Option) error {
	span := startSpan(ctx, "put-object", key)
	err := ActiveBucket.PutObject(key, r, opts...)
	finishSpan(span, err)
	return err
}

// IsNoSuchKey reports whether err is the service answer for a missing object.
func IsNoSuchKey(err error) bool {
	serErr, ok := err.(oss.ServiceError)
	return ok && serErr.Code == "NoSuchKey"
}

func startSpan(ctx context.Context, operation, key string) opentracing.Span {
	if ctx == nil {
		return nil
	}
	parentSpan := opentracing.SpanFromContext(ctx)
	if parentSpan == nil {
		return nil
	}
	sp := parentSpan.Tracer().StartSpan(operation, opentracing.ChildOf(parentSpan.Context()))
	sp.SetTag("object-key", key)
	ext.SpanKindRPCClient.Set(sp)
	return sp
}

func finishSpan(sp opentracing.Span, err error) {
	if sp == nil {
		return
	}
	ext.Error.Set(sp, err != nil)
	sp.Finish()
}
