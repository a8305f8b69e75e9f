package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePermissions(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		return errors.New("paths.downloads_dir must be set")
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		return errors.New("paths.media_dir must be set")
	}
	if c.Paths.DownloadsDir == c.Paths.MediaDir {
		return errors.New("paths.downloads_dir and paths.media_dir must differ")
	}
	return nil
}

func (c *Config) validatePermissions() error {
	if c.Permissions.UID < -1 {
		return errors.New("permissions.uid must be -1 or a valid user id")
	}
	if c.Permissions.GID < -1 {
		return errors.New("permissions.gid must be -1 or a valid group id")
	}
	if _, err := ParseMode(c.Permissions.FileMode); err != nil {
		return fmt.Errorf("permissions.file_mode: %w", err)
	}
	if _, err := ParseMode(c.Permissions.DirMode); err != nil {
		return fmt.Errorf("permissions.dir_mode: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// ParseMode converts an octal mode string such as "0664" into permission bits.
func ParseMode(value string) (uint32, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("mode must not be empty")
	}
	parsed, err := strconv.ParseUint(trimmed, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q", value)
	}
	if parsed > 0o7777 {
		return 0, fmt.Errorf("mode %q out of range", value)
	}
	return uint32(parsed), nil
}
