package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "LINKBIO"
	defaultHTTPAddress  = ":8080"
	defaultDatabasePath = "linkbio.db"
	defaultLocalRoot    = "public"
	defaultAnalyticsURL = "https://cloud.umami.is"

	// DefaultSessionSecret 仅供本地开发，生产环境必须通过 LINKBIO_SESSION_SECRET 覆盖
	DefaultSessionSecret = "linkbio-dev-secret"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"

	DatabaseDriverSQLite = "sqlite"
	DatabaseDriverMySQL  = "mysql"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	HTTPAddress    string
	GinMode        string
	SessionSecret  string
	SecureCookie   bool
	LogLevel       string
	AllowedOrigins []string
	Database       DatabaseConfig
	Storage        StorageConfig
	Analytics      AnalyticsConfig
}

// DatabaseConfig 描述数据库驱动与连接信息。
type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// StorageConfig 描述头像文件的存储后端。
type StorageConfig struct {
	Driver    string
	LocalRoot string
	S3        S3Config
}

// S3Config 为兼容 S3 协议的对象存储配置。
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// AnalyticsConfig 为 Umami 统计接口配置，WebsiteID 为空时视为未配置。
type AnalyticsConfig struct {
	APIURL    string
	WebsiteID string
	APIToken  string
	Username  string
	Password  string
	Timezone  string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults 为 viper 实例设置默认值并绑定环境变量（LINKBIO_ 前缀）。
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("gin.mode", "release")
	configViper.SetDefault("session.secret", DefaultSessionSecret)
	configViper.SetDefault("session.secure", false)
	configViper.SetDefault("log.level", "info")
	configViper.SetDefault("cors.allowed_origins", []string{})
	configViper.SetDefault("database.driver", DatabaseDriverSQLite)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("storage.driver", StorageDriverLocal)
	configViper.SetDefault("storage.local_root", defaultLocalRoot)
	configViper.SetDefault("s3.endpoint", "")
	configViper.SetDefault("s3.region", "us-east-1")
	configViper.SetDefault("s3.bucket", "")
	configViper.SetDefault("s3.access_key_id", "")
	configViper.SetDefault("s3.secret_access_key", "")
	configViper.SetDefault("s3.force_path_style", false)
	configViper.SetDefault("analytics.api_url", defaultAnalyticsURL)
	configViper.SetDefault("analytics.website_id", "")
	configViper.SetDefault("analytics.api_token", "")
	configViper.SetDefault("analytics.username", "")
	configViper.SetDefault("analytics.password", "")
	configViper.SetDefault("analytics.timezone", "Local")
}

// Load 从 viper 读取应用配置，并校验必填项。
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    strings.TrimSpace(configViper.GetString("http.address")),
		GinMode:        strings.TrimSpace(configViper.GetString("gin.mode")),
		SessionSecret:  strings.TrimSpace(configViper.GetString("session.secret")),
		SecureCookie:   configViper.GetBool("session.secure"),
		LogLevel:       strings.TrimSpace(configViper.GetString("log.level")),
		AllowedOrigins: normalizeList(configViper.GetStringSlice("cors.allowed_origins")),
		Database: DatabaseConfig{
			Driver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
			Path:   strings.TrimSpace(configViper.GetString("database.path")),
			DSN:    strings.TrimSpace(configViper.GetString("database.dsn")),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
			LocalRoot: strings.TrimSpace(configViper.GetString("storage.local_root")),
			S3: S3Config{
				Endpoint:        strings.TrimSpace(configViper.GetString("s3.endpoint")),
				Region:          strings.TrimSpace(configViper.GetString("s3.region")),
				Bucket:          strings.TrimSpace(configViper.GetString("s3.bucket")),
				AccessKeyID:     strings.TrimSpace(configViper.GetString("s3.access_key_id")),
				SecretAccessKey: strings.TrimSpace(configViper.GetString("s3.secret_access_key")),
				ForcePathStyle:  configViper.GetBool("s3.force_path_style"),
			},
		},
		Analytics: AnalyticsConfig{
			APIURL:    strings.TrimRight(strings.TrimSpace(configViper.GetString("analytics.api_url")), "/"),
			WebsiteID: strings.TrimSpace(configViper.GetString("analytics.website_id")),
			APIToken:  strings.TrimSpace(configViper.GetString("analytics.api_token")),
			Username:  strings.TrimSpace(configViper.GetString("analytics.username")),
			Password:  configViper.GetString("analytics.password"),
			Timezone:  strings.TrimSpace(configViper.GetString("analytics.timezone")),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// UsesDefaultSessionSecret 报告会话密钥是否仍是内置的开发默认值
func (c AppConfig) UsesDefaultSessionSecret() bool {
	return c.SessionSecret == DefaultSessionSecret
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("session.secret is required")
	}

	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DatabaseDriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("storage.local_root is required")
		}
	case StorageDriverS3:
		s3 := c.Storage.S3
		if s3.Endpoint == "" {
			return fmt.Errorf("s3.endpoint is required")
		}
		if s3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}
		if s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return fmt.Errorf("s3 credentials are required")
		}
		if s3.Region == "" {
			return fmt.Errorf("s3.region is required")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}

	return nil
}

func normalizeList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
