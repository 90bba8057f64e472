// Remote stream support for export and import URLs: local paths, file://,
// s3:// and http(s)://.

package db

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Config carries S3 settings parsed from an s3:// URL's query string:
// region, endpoint (for S3-compatible services), access_key and secret_key.
// Anything not in the URL falls back to the AWS default chain.
type s3Config struct {
	region    string
	endpoint  string
	accessKey string
	secretKey string
}

// urlScheme represents the scheme of a URL
type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

// detectScheme detects the URL scheme from a path string
func detectScheme(path string) urlScheme {
	lowerPath := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lowerPath, "s3://"):
		return schemeS3
	case strings.HasPrefix(lowerPath, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lowerPath, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lowerPath, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// openRemoteReader opens a reader for the given URL or local path.
func openRemoteReader(path string) (io.ReadCloser, error) {
	switch detectScheme(path) {
	case schemeLocal, schemeFile:
		return osOpen(strings.TrimPrefix(path, "file://"))

	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(path)

	case schemeS3:
		return openS3Reader(path)

	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

// openRemoteWriter opens a writer for the given URL or local path. The HTTP
// and S3 writers buffer their payload and send it on Close.
func openRemoteWriter(path string) (io.WriteCloser, error) {
	switch detectScheme(path) {
	case schemeLocal, schemeFile:
		return osCreate(strings.TrimPrefix(path, "file://"))

	case schemeHTTP, schemeHTTPS:
		return &httpWriter{url: path}, nil

	case schemeS3:
		return openS3Writer(path)

	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

// openHTTPReader opens an HTTP GET reader
func openHTTPReader(url string) (io.ReadCloser, error) {
	client := &http.Client{
		Timeout: 5 * time.Minute, // generous timeout for large files
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// httpWriter buffers the payload and PUTs it when closed.
type httpWriter struct {
	url    string
	buffer bytes.Buffer
	closed bool
}

func (w *httpWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.buffer.Write(p)
}

func (w *httpWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	req, err := http.NewRequest(http.MethodPut, w.url, bytes.NewReader(w.buffer.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to build HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP upload returned status %d", resp.StatusCode)
	}

	return nil
}

// parseS3URL splits s3://bucket/key?region=…&endpoint=… into its parts.
func parseS3URL(rawURL string) (bucket string, key string, cfg s3Config, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", s3Config{}, fmt.Errorf("invalid S3 URL %s: %w", rawURL, err)
	}

	bucket = parsed.Host
	key = strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return "", "", s3Config{}, fmt.Errorf("invalid S3 URL: %s", rawURL)
	}

	query := parsed.Query()
	cfg = s3Config{
		region:    query.Get("region"),
		endpoint:  query.Get("endpoint"),
		accessKey: query.Get("access_key"),
		secretKey: query.Get("secret_key"),
	}

	return bucket, key, cfg, nil
}

// getS3Client creates an S3 client with the given configuration
func getS3Client(ctx context.Context, cfg s3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.region != "" {
		opts = append(opts, config.WithRegion(cfg.region))
	}

	if cfg.accessKey != "" && cfg.secretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.accessKey, cfg.secretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// openS3Reader opens a reader for an S3 object
func openS3Reader(url string) (io.ReadCloser, error) {
	bucket, key, cfg, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}

// s3Writer buffers the payload and uploads it when closed.
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buffer bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// openS3Writer opens a writer for an S3 object
func openS3Writer(url string) (io.WriteCloser, error) {
	bucket, key, cfg, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &s3Writer{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
	}, nil
}

// osOpen wraps os.Open - used to allow the function to be swapped in tests
var osOpen = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// osCreate wraps os.Create - used to allow the function to be swapped in tests
var osCreate = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
