package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateManifest(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ArtifactDir == "" {
		return errors.New("paths.artifact_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.ArtifactDir == c.Paths.StagingDir {
		return errors.New("paths.staging_dir must differ from paths.artifact_dir")
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.ContainsAny(c.Server.ArtifactRoute, "/?#") {
		return fmt.Errorf("server.artifact_route %q must be a single path segment", c.Server.ArtifactRoute)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.PublicBaseURL != "" {
		parsed, err := url.Parse(c.Server.PublicBaseURL)
		if err != nil {
			return fmt.Errorf("server.public_base_url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("server.public_base_url must use http or https, got %q", parsed.Scheme)
		}
		if parsed.Host == "" {
			return errors.New("server.public_base_url must include a host")
		}
	}
	return nil
}

func (c *Config) validateTranscode() error {
	return ensurePositiveMap(map[string]int{
		"transcode.segment_seconds": c.Transcode.SegmentSeconds,
		"transcode.max_concurrent":  c.Transcode.MaxConcurrent,
		"transcode.timeout_seconds": c.Transcode.TimeoutSeconds,
		"staging.max_age_hours":     c.Staging.MaxAgeHours,
	})
}

func (c *Config) validateManifest() error {
	switch c.Manifest.RewriteMode {
	case RewriteModeLine, RewriteModeCoarse:
		return nil
	default:
		return fmt.Errorf("manifest.rewrite_mode: unsupported value %q (want %q or %q)",
			c.Manifest.RewriteMode, RewriteModeLine, RewriteModeCoarse)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
