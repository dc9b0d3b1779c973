package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	gotExpires time.Duration
	err        error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.gotExpires = o.Expires
	return &v4.PresignedHTTPRequest{URL: "https://s3.example/" + *in.Bucket + "/" + *in.Key + "?X-Amz-Signature=abc", Method: http.MethodGet}, nil
}

func TestS3Store_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	s := &S3Store{bucket: "audio", api: api, presign: &fakePresigner{}}

	require.NoError(t, s.Put(ctx, "users/k.webm", bytes.NewReader([]byte("opus")), 4, "audio/webm"))
	assert.Equal(t, "audio/webm", api.types["users/k.webm"])

	rc, err := s.Open(ctx, "users/k.webm")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "opus", string(b))

	require.NoError(t, s.Delete(ctx, "users/k.webm"))
	_, err = s.Open(ctx, "users/k.webm")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_PutError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("access denied")
	s := &S3Store{bucket: "audio", api: api}

	assert.EqualError(t, s.Put(context.Background(), "k", bytes.NewReader(nil), 0, ""), "access denied")
}

func TestS3Store_PresignGet(t *testing.T) {
	p := &fakePresigner{}
	s := &S3Store{bucket: "audio", api: newFakeS3(), presign: p}

	url, err := s.PresignGet(context.Background(), "users/k.webm", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/audio/users/k.webm?X-Amz-Signature=abc", url)
	assert.Equal(t, 15*time.Minute, p.gotExpires)

	p.err = errors.New("presign-fail")
	_, err = s.PresignGet(context.Background(), "k", time.Minute)
	assert.EqualError(t, err, "presign-fail")

	var _ Presigner = s
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	s, err := NewS3Store(context.Background(), S3Options{
		Region: "us-east-1", AccessKey: "minio", SecretKey: "minio123",
		BaseEndpoint: "http://127.0.0.1:9000", Bucket: "audio",
	})
	require.NoError(t, err)
	assert.Equal(t, "audio", s.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Store(context.Background(), S3Options{Region: "us-east-1"})
	assert.EqualError(t, err, "load-fail")
}
