package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAlex(); err != nil {
		return err
	}
	if err := c.ResolveConfig().Validate(); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if err := c.validateThrottle(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	return c.validateCountries()
}

func (c *Config) validateOpenAlex() error {
	u, err := url.Parse(c.OpenAlex.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("openalex.base_url %q must be an absolute URL", c.OpenAlex.BaseURL)
	}
	if c.OpenAlex.TimeoutSeconds <= 0 {
		return errors.New("openalex.timeout_seconds must be positive")
	}
	if c.OpenAlex.HTTPCacheTTLHours < 0 {
		return errors.New("openalex.http_cache_ttl_hours must not be negative")
	}
	if c.OpenAlex.Mailto != "" && !strings.Contains(c.OpenAlex.Mailto, "@") {
		return fmt.Errorf("openalex.mailto %q is not an email address", c.OpenAlex.Mailto)
	}
	return nil
}

func (c *Config) validateThrottle() error {
	t := c.Throttle
	if t.CallsPerSecond < 0 || math.IsInf(t.CallsPerSecond, 0) || math.IsNaN(t.CallsPerSecond) {
		return errors.New("throttle.calls_per_second must be a non-negative number")
	}
	if t.RetryAttempts < 1 {
		return errors.New("throttle.retry_attempts must be at least 1")
	}
	if t.RetryDelayMS < 0 || t.RetryMaxDelayMS < 0 {
		return errors.New("throttle retry delays must not be negative")
	}
	if t.RetryMaxDelayMS > 0 && t.RetryMaxDelayMS < t.RetryDelayMS {
		return errors.New("throttle.retry_max_delay_ms must be at least retry_delay_ms")
	}
	return nil
}

func (c *Config) validateWeights() error {
	v := reflect.ValueOf(c.Weights)
	for i := range v.NumField() {
		w := v.Field(i).Float()
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			tag := v.Type().Field(i).Tag.Get("toml")
			return fmt.Errorf("weights.%s must be a non-negative number", tag)
		}
	}
	return nil
}

func (c *Config) validateCountries() error {
	for name, code := range c.Countries {
		code = strings.TrimSpace(code)
		if len(code) != 2 {
			return fmt.Errorf("countries.%s: code %q must have two letters", name, code)
		}
	}
	return nil
}
