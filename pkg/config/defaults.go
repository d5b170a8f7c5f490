package config

import (
	"github.com/codeGROOVE-dev/scholarmatch/pkg/openalex"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/resolve"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/score"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/throttle"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	rc := resolve.DefaultConfig()
	rp := throttle.DefaultPolicy()
	return Config{
		OpenAlex: OpenAlex{
			BaseURL:           openalex.DefaultBaseURL,
			TimeoutSeconds:    20,
			HTTPCacheTTLHours: 7 * 24,
		},
		Resolve: Resolve{
			InstitutionThreshold: rc.InstitutionThreshold,
			PersonThreshold:      rc.PersonThreshold,
			PageSize:             rc.PageSize,
			Concurrency:          rc.Concurrency,
		},
		Throttle: Throttle{
			CallsPerSecond:  5,
			RetryAttempts:   int(rp.Attempts),
			RetryDelayMS:    int(rp.Delay.Milliseconds()),
			RetryMaxDelayMS: int(rp.MaxDelay.Milliseconds()),
		},
		Weights: score.DefaultWeights(),
	}
}
