package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// S3Config MinIO S3存储配置，对账时用于确认文件是否仍存在于权威存储.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"          rule:"required_if=Enabled true"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required_if=Enabled true"`
	Region          string `mapstructure:"region"`
	// KeyPrefix 文件标识映射为对象键时的前缀，对象键 = KeyPrefix + 文件标识.
	KeyPrefix string `mapstructure:"key_prefix"`
	// CreateBucket 启动时桶不存在则创建，默认只检查.
	CreateBucket bool `mapstructure:"create_bucket"`
	// ProbeTimeout 单次存在性探测超时（秒）.
	ProbeTimeout int `mapstructure:"probe_timeout" rule:"min=1,max=300"`
}

const (
	DefaultS3Enabled         = true             // 默认启用对象存储探测
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "filetally"      // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3ProbeTimeout    = 10               // 默认探测超时（秒）
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// ObjectKey 返回文件标识对应的对象键.
func (c *S3Config) ObjectKey(fileID string) string {
	return c.KeyPrefix + fileID
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.enabled", DefaultS3Enabled)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.key_prefix", "")
	v.SetDefault("s3.create_bucket", false)
	v.SetDefault("s3.probe_timeout", DefaultS3ProbeTimeout)
}
