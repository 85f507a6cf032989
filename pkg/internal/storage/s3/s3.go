// Package s3 封装 MinIO 客户端，作为文件是否仍然存在的权威来源.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/filetally/pkg/configs"
	nlog "github.com/yeisme/filetally/pkg/log"
)

// ErrObjectNotFound 对象（或其所在的键）不存在.
var ErrObjectNotFound = errors.New("object not found")

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client

	cfg configs.S3Config
}

// New 初始化 MinIO 客户端并检查存储桶. CreateBucket 为 true 时不存在的桶会被创建.
func New(ctx context.Context, cfg configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	// 允许传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("filetally", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", cfg.BucketName)
		}

		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, cfg: cfg}, nil
}

// Bucket 存放被追踪文件的桶.
func (c *Client) Bucket() string { return c.cfg.BucketName }

// StatFile 查询文件标识对应的对象. 对象不存在时返回 ErrObjectNotFound，其余错误原样包装.
func (c *Client) StatFile(ctx context.Context, fileID string) (minio.ObjectInfo, error) {
	key := c.cfg.ObjectKey(fileID)

	info, err := c.StatObject(ctx, c.cfg.BucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return minio.ObjectInfo{}, fmt.Errorf("stat %s: %w", key, ErrObjectNotFound)
		}

		return minio.ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}

	return info, nil
}

// IsNotFound 判断 MinIO 错误是否表示对象不存在. 桶不存在不算，避免整桶故障时误删全部记录.
func IsNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)

	switch resp.Code {
	case "NoSuchKey", "NoSuchVersion":
		return true
	case "":
		return resp.StatusCode == http.StatusNotFound && resp.BucketName == ""
	default:
		return false
	}
}

// HealthCheck 通过检查目标桶验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.cfg.BucketName)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s missing", c.cfg.BucketName)
	}

	return nil
}

// Close 无实际操作，接口兼容.
func (c *Client) Close() error {
	return nil
}

// Config 返回创建客户端时使用的配置.
func (c *Client) Config() configs.S3Config {
	return c.cfg
}
