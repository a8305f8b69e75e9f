package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePermissions()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadsDir, err = expandPath(c.Paths.DownloadsDir); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizePermissions() {
	if uid := strings.TrimSpace(os.Getenv("RESTACK_UID")); uid != "" {
		if parsed, err := strconv.Atoi(uid); err == nil {
			c.Permissions.UID = parsed
		}
	}
	if gid := strings.TrimSpace(os.Getenv("RESTACK_GID")); gid != "" {
		if parsed, err := strconv.Atoi(gid); err == nil {
			c.Permissions.GID = parsed
		}
	}
	if strings.TrimSpace(c.Permissions.FileMode) == "" {
		c.Permissions.FileMode = defaultFileMode
	}
	if strings.TrimSpace(c.Permissions.DirMode) == "" {
		c.Permissions.DirMode = defaultDirMode
	}
}

func (c *Config) normalizeHistory() {
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = defaultHistoryMaxEntries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
