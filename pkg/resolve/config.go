// Package resolve runs the institution and person resolution cascades.
package resolve

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the tunable knobs of a resolution run.
type Config struct {
	InstitutionThreshold float64       // Minimum confidence to accept an institution
	PersonThreshold      float64       // Minimum confidence to accept a person
	PageSize             int           // Candidates requested per search
	Concurrency          int           // Records resolved in parallel by ResolveAll
	RecordTimeout        time.Duration // Deadline per record in ResolveAll; 0 disables
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		InstitutionThreshold: 0.45,
		PersonThreshold:      0.52,
		PageSize:             25,
		Concurrency:          4,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.InstitutionThreshold < 0 || c.InstitutionThreshold > 1 {
		errs = append(errs, fmt.Errorf("institution threshold %v outside [0,1]", c.InstitutionThreshold))
	}
	if c.PersonThreshold < 0 || c.PersonThreshold > 1 {
		errs = append(errs, fmt.Errorf("person threshold %v outside [0,1]", c.PersonThreshold))
	}
	if c.PageSize < 1 || c.PageSize > 200 {
		errs = append(errs, fmt.Errorf("page size %d outside [1,200]", c.PageSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency %d must be at least 1", c.Concurrency))
	}
	if c.RecordTimeout < 0 {
		errs = append(errs, fmt.Errorf("record timeout %v must not be negative", c.RecordTimeout))
	}
	return errors.Join(errs...)
}
