package syncfile

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gobeaver/beaver-kit/config"
	"go.uber.org/zap"
)

type Config struct {
	// Default driver to use (file, local, memory, mmap, billy, s3, sftp)
	Driver string `env:"SYNCFILE_DRIVER,default:file"`

	// Local driver configuration
	LocalBasePath string `env:"SYNCFILE_LOCAL_BASE_PATH,default:./storage"`

	// Memory driver configuration
	MemoryMaxSize int64 `env:"SYNCFILE_MEMORY_MAX_SIZE,default:0"` // 0 = unlimited

	// Mmap driver configuration
	MmapSize int64 `env:"SYNCFILE_MMAP_SIZE,default:0"` // size used when creating mapped files

	// Billy driver configuration
	BillyBackend string `env:"SYNCFILE_BILLY_BACKEND,default:memfs"` // memfs or osfs
	BillyRoot    string `env:"SYNCFILE_BILLY_ROOT"`

	// S3 driver configuration
	S3Region          string `env:"SYNCFILE_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"SYNCFILE_S3_BUCKET"`
	S3Prefix          string `env:"SYNCFILE_S3_PREFIX"`
	S3Endpoint        string `env:"SYNCFILE_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"SYNCFILE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"SYNCFILE_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"SYNCFILE_S3_FORCE_PATH_STYLE,default:false"`

	// SFTP driver configuration
	SFTPHost       string `env:"SYNCFILE_SFTP_HOST"`
	SFTPPort       int    `env:"SYNCFILE_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"SYNCFILE_SFTP_USERNAME"`
	SFTPPassword   string `env:"SYNCFILE_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"SYNCFILE_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"SYNCFILE_SFTP_BASE_PATH"`
	SFTPKnownHosts string `env:"SYNCFILE_SFTP_KNOWN_HOSTS"` // Path to known_hosts file

	// File defaults
	CreateMode string `env:"SYNCFILE_CREATE_MODE,default:0644"` // octal
	ReadOnly   bool   `env:"SYNCFILE_READ_ONLY,default:false"`

	// Copy and checksum settings
	ChunkSize         int    `env:"SYNCFILE_CHUNK_SIZE,default:1048576"`
	Concurrency       int    `env:"SYNCFILE_CONCURRENCY,default:4"`
	ChecksumAlgorithm string `env:"SYNCFILE_CHECKSUM_ALGORITHM,default:xxhash"`

	// Logging
	LogLevel       string `env:"SYNCFILE_LOG_LEVEL,default:info"`
	LogDevelopment bool   `env:"SYNCFILE_LOG_DEVELOPMENT,default:false"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FileMode parses CreateMode as an octal permission.
func (c *Config) FileMode() (os.FileMode, error) {
	if c.CreateMode == "" {
		return 0o666, nil
	}
	mode, err := strconv.ParseUint(c.CreateMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid create mode %q: %w", c.CreateMode, err)
	}
	return os.FileMode(mode).Perm(), nil
}

// NewLogger builds a zap logger from the logging settings.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zcfg.Level = level
	}

	return zcfg.Build()
}
