package backup

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"strings"
)

// S3Config holds the upload destination. Credentials come from the usual
// AWS environment and profile chain.
type S3Config struct {
	BucketURL string
	Endpoint  string
	Region    string
}

// S3Uploader copies snapshots to S3 (or an S3-compatible store) with the
// aws CLI.
type S3Uploader struct {
	bucket string
	prefix string
	cfg    S3Config
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewS3Uploader validates cfg and checks that the aws CLI is installed.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	bucket, prefix, err := parseBucketURL(cfg.BucketURL)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath("aws"); err != nil {
		return nil, fmt.Errorf("s3: aws cli not found in PATH")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Uploader{bucket: bucket, prefix: prefix, cfg: cfg, run: runCommand}, nil
}

// UploadFile copies localPath to s3://bucket/prefix/<file name>.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) error {
	out, err := u.run(ctx, "aws", u.args(localPath)...)
	if err != nil {
		return fmt.Errorf("s3: upload %s: %w: %s", path.Base(localPath), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (u *S3Uploader) args(localPath string) []string {
	key := path.Join(u.prefix, path.Base(localPath))
	args := []string{"s3", "cp", localPath, "s3://" + u.bucket + "/" + key,
		"--region", u.cfg.Region, "--only-show-errors"}
	if ep := strings.TrimSpace(u.cfg.Endpoint); ep != "" {
		if !strings.Contains(ep, "://") {
			ep = "https://" + ep
		}
		args = append(args, "--endpoint-url", ep)
	}
	return args
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func parseBucketURL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("s3: parse bucket-url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("s3: bucket-url must use the s3:// scheme")
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("s3: bucket-url has no bucket name")
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
