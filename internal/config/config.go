// =============================================================================
// Ledger Cleaner - Configuration Module
// =============================================================================
//
// Loading of config.yaml and of the per-source profiles under profiles/.
//
// PRECEDENCE (lowest to highest):
//   built-in defaults -> config.yaml -> CLEANER_* environment variables
//
// A missing config.yaml is not an error: the defaults are used, so the
// server and the CLI can start in an empty directory.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ledger-cleaner/pkg/utils"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig is the content of config.yaml.
type MainConfig struct {
	// =========================================================================
	// DIRECTORIES
	// =========================================================================

	// InputDir is scanned for ledger exports ("./input").
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the reassembled workbooks, error logs and
	// summaries ("./output").
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives each input once it is cleaned
	// ("./input_archive").
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir keeps a copy of every output ("./output_archive").
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ArchiveOnSuccess moves each cleaned input to InputArchiveDir and
	// copies its output to OutputArchiveDir (true). When false both stay
	// where they are.
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// ArchiveDateSubdirs files archives under YYYY/MM/DD subdirectories.
	ArchiveDateSubdirs bool `yaml:"archive_date_subdirs"`

	// ProfilesDir holds one YAML file per export source.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// DefaultProfile is the code of the profile used when no file pattern
	// matches and no profile is requested explicitly.
	// Default: "default"
	DefaultProfile string `yaml:"default_profile"`

	// =========================================================================
	// LOGGING
	// =========================================================================

	// LogFile receives the log. Empty logs to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel is debug, info (default), warn or error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text (default) or json.
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT
	// =========================================================================

	// OutputNameFormat names each output workbook. Besides the placeholders
	// of utils.GenerateOutputFileName it accepts {original}, the input name
	// without extension, and {profile}, the profile code.
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// BATCH
	// =========================================================================

	// MaxConcurrency bounds the files cleaned at once (4).
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError lets a batch go on past a failed file (true).
	ContinueOnError bool `yaml:"continue_on_error"`

	// Server configures the upload endpoint.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps the size of an uploaded workbook.
	// Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// Mode is the gin mode: "release", "debug" or "test".
	// Default: "release"
	Mode string `yaml:"mode"`
}

// DefaultMainConfig returns the configuration used when no file is present.
func DefaultMainConfig() *MainConfig {
	return &MainConfig{
		InputDir:         "./input",
		OutputDir:        "./output",
		InputArchiveDir:  "./input_archive",
		OutputArchiveDir: "./output_archive",
		ProfilesDir:      "./profiles",
		DefaultProfile:   DefaultProfileCode,
		LogLevel:         "info",
		LogFormat:        "text",
		OutputNameFormat: "{original}_cleaned_{uuid}.xlsx",
		MaxConcurrency:   4,
		ContinueOnError:  true,
		ArchiveOnSuccess: true,
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 32,
			Mode:        "release",
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadMainConfig reads path over the defaults, then applies the CLEANER_*
// environment overrides. A missing file yields the defaults.
func LoadMainConfig(path string) (*MainConfig, error) {
	config := DefaultMainConfig()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	default:
		// Keys absent from the file keep their default.
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("cannot parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyMainConfigDefaults(config)
	return config, nil
}

// applyMainConfigDefaults restores defaults for keys explicitly set empty.
func applyMainConfigDefaults(config *MainConfig) {
	def := DefaultMainConfig()

	for dst, fallback := range map[*string]string{
		&config.InputDir:         def.InputDir,
		&config.OutputDir:        def.OutputDir,
		&config.InputArchiveDir:  def.InputArchiveDir,
		&config.OutputArchiveDir: def.OutputArchiveDir,
		&config.ProfilesDir:      def.ProfilesDir,
		&config.DefaultProfile:   def.DefaultProfile,
		&config.LogLevel:         def.LogLevel,
		&config.LogFormat:        def.LogFormat,
		&config.OutputNameFormat: def.OutputNameFormat,
		&config.Server.Addr:      def.Server.Addr,
		&config.Server.Mode:      def.Server.Mode,
	} {
		if *dst == "" {
			*dst = fallback
		}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Server.MaxUploadMB <= 0 {
		config.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
}

// Files returns a FileManager over the configured directories.
func (c *MainConfig) Files() *utils.FileManager {
	fm := utils.NewFileManager(utils.Dirs{
		Input:         c.InputDir,
		Output:        c.OutputDir,
		InputArchive:  c.InputArchiveDir,
		OutputArchive: c.OutputArchiveDir,
	})
	fm.Archive = c.ArchiveOnSuccess
	fm.DateSubdirs = c.ArchiveDateSubdirs
	return fm
}

// EnsureDirs creates the input, output and archive directories.
func (c *MainConfig) EnsureDirs() error {
	return c.Files().EnsureDirectories()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLEANER_"

// applyEnvOverrides copies CLEANER_* variables into config. Variables are
// usually populated from a .env file by the CLI before loading.
func applyEnvOverrides(config *MainConfig) error {
	strs := map[string]*string{
		"INPUT_DIR":          &config.InputDir,
		"OUTPUT_DIR":         &config.OutputDir,
		"INPUT_ARCHIVE_DIR":  &config.InputArchiveDir,
		"OUTPUT_ARCHIVE_DIR": &config.OutputArchiveDir,
		"PROFILES_DIR":       &config.ProfilesDir,
		"DEFAULT_PROFILE":    &config.DefaultProfile,
		"LOG_FILE":           &config.LogFile,
		"LOG_LEVEL":          &config.LogLevel,
		"LOG_FORMAT":         &config.LogFormat,
		"OUTPUT_NAME_FORMAT": &config.OutputNameFormat,
		"SERVER_ADDR":        &config.Server.Addr,
		"SERVER_MODE":        &config.Server.Mode,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MAX_CONCURRENCY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMAX_CONCURRENCY: %w", EnvPrefix, err)
		}
		config.MaxConcurrency = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SERVER_MAX_UPLOAD_MB"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%sSERVER_MAX_UPLOAD_MB: %w", EnvPrefix, err)
		}
		config.Server.MaxUploadMB = n
	}

	bools := map[string]*bool{
		"CONTINUE_ON_ERROR":    &config.ContinueOnError,
		"ARCHIVE_ON_SUCCESS":   &config.ArchiveOnSuccess,
		"ARCHIVE_DATE_SUBDIRS": &config.ArchiveDateSubdirs,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}
	return nil
}
