package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAlex()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.OpenAlex.HTTPCacheDir, err = expandPath(strings.TrimSpace(c.OpenAlex.HTTPCacheDir)); err != nil {
		return fmt.Errorf("openalex.http_cache_dir: %w", err)
	}
	if c.Cache.SQLitePath, err = expandPath(strings.TrimSpace(c.Cache.SQLitePath)); err != nil {
		return fmt.Errorf("cache.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenAlex() {
	c.OpenAlex.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAlex.BaseURL), "/")
	c.OpenAlex.Mailto = strings.TrimSpace(c.OpenAlex.Mailto)
	if c.OpenAlex.Mailto == "" {
		if value, ok := os.LookupEnv("OPENALEX_MAILTO"); ok {
			c.OpenAlex.Mailto = strings.TrimSpace(value)
		}
	}
	c.OpenAlex.UserAgent = strings.TrimSpace(c.OpenAlex.UserAgent)
}
