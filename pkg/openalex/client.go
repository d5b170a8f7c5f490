// Package openalex searches the OpenAlex scholarly directory.
package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/httpcache"
)

// DefaultBaseURL is the public OpenAlex API.
const DefaultBaseURL = "https://api.openalex.org"

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

var (
	authorFields = strings.Join([]string{
		"id", "display_name", "display_name_alternatives", "orcid", "summary_stats",
		"affiliations", "last_known_institutions", "relevance_score", "works_count", "cited_by_count",
	}, ",")
	institutionFields = strings.Join([]string{
		"id", "display_name", "country_code", "display_name_acronyms", "display_name_alternatives",
		"ror", "relevance_score", "works_count", "cited_by_count",
	}, ",")
)

var errEmptyQuery = errors.New("empty search text")

// Throttler paces and retries a call. *throttle.Throttle satisfies it.
type Throttler interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// Client handles OpenAlex requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	throttle   Throttler
	logger     *slog.Logger
	baseURL    string
	mailto     string
	userAgent  string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	throttle   Throttler
	logger     *slog.Logger
	baseURL    string
	mailto     string
	userAgent  string
}

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithThrottle paces and retries every request the client makes.
func WithThrottle(t Throttler) Option {
	return func(c *config) { c.throttle = t }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMailto joins the polite pool by identifying the caller.
func WithMailto(addr string) Option {
	return func(c *config) { c.mailto = addr }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// New creates an OpenAlex client.
func New(opts ...Option) (*Client, error) {
	cfg := &config{
		baseURL:   DefaultBaseURL,
		logger:    slog.Default(),
		userAgent: httpcache.UserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base, err := url.Parse(cfg.baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.baseURL)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	ua := cfg.userAgent
	if cfg.mailto != "" && !strings.Contains(ua, cfg.mailto) {
		ua += " mailto:" + cfg.mailto
	}

	return &Client{
		httpClient: cfg.httpClient,
		cache:      cfg.cache,
		throttle:   cfg.throttle,
		logger:     cfg.logger,
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		mailto:     cfg.mailto,
		userAgent:  ua,
	}, nil
}

type meta struct {
	NextCursor string `json:"next_cursor"`
	Count      int    `json:"count"`
}

type listResponse[T any] struct {
	Results []T  `json:"results"`
	Meta    meta `json:"meta"`
}

type dehydratedInstitution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
	ROR         string `json:"ror"`
}

type institution struct {
	RelevanceScore *float64 `json:"relevance_score"`
	ID             string   `json:"id"`
	DisplayName    string   `json:"display_name"`
	CountryCode    string   `json:"country_code"`
	ROR            string   `json:"ror"`
	Acronyms       []string `json:"display_name_acronyms"`
	Alternatives   []string `json:"display_name_alternatives"`
	WorksCount     int      `json:"works_count"`
	CitedByCount   int      `json:"cited_by_count"`
}

type author struct {
	SummaryStats *struct {
		HIndex   int `json:"h_index"`
		I10Index int `json:"i10_index"`
	} `json:"summary_stats"`
	RelevanceScore *float64 `json:"relevance_score"`
	ID             string   `json:"id"`
	DisplayName    string   `json:"display_name"`
	ORCID          string   `json:"orcid"`
	Alternatives   []string `json:"display_name_alternatives"`
	Affiliations   []struct {
		Institution dehydratedInstitution `json:"institution"`
		Years       []int                 `json:"years"`
	} `json:"affiliations"`
	LastKnownInstitutions []dehydratedInstitution `json:"last_known_institutions"`
	WorksCount            int                     `json:"works_count"`
	CitedByCount          int                     `json:"cited_by_count"`
}

// Search implements entity.Source against the institutions and authors endpoints.
func (c *Client) Search(ctx context.Context, req entity.SearchRequest) (*entity.Page, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, entity.Permanent(errEmptyQuery)
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(pageSize(req.PageSize)))
	if req.SortByRelevance {
		params.Set("sort", "relevance_score:desc")
	}

	switch req.Kind {
	case entity.Institution:
		params.Set("search", text)
		params.Set("select", institutionFields)
		if cc := strings.TrimSpace(req.Filters.CountryCode); cc != "" {
			params.Set("filter", "country_code:"+strings.ToUpper(cc))
		}
		var resp listResponse[institution]
		if err := c.getJSON(ctx, "/institutions", params, &resp); err != nil {
			return nil, err
		}
		page := &entity.Page{Total: resp.Meta.Count, NextCursor: resp.Meta.NextCursor}
		for i := range resp.Results {
			page.Records = append(page.Records, resp.Results[i].record())
		}
		return page, nil

	case entity.Person:
		params.Set("select", authorFields)
		if ids := req.Filters.InstitutionIDs; len(ids) > 0 {
			// Commas separate filter clauses.
			params.Set("filter", "default.search:"+strings.ReplaceAll(text, ",", " ")+
				",last_known_institutions.id:"+strings.Join(ids, "|"))
		} else {
			params.Set("search", text)
		}
		var resp listResponse[author]
		if err := c.getJSON(ctx, "/authors", params, &resp); err != nil {
			return nil, err
		}
		page := &entity.Page{Total: resp.Meta.Count, NextCursor: resp.Meta.NextCursor}
		for i := range resp.Results {
			page.Records = append(page.Records, resp.Results[i].record())
		}
		return page, nil

	default:
		return nil, entity.Permanent(fmt.Errorf("unsupported kind %v", req.Kind))
	}
}

func pageSize(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}

func (inst *institution) record() entity.Record {
	rec := entity.Record{
		ID:          inst.ID,
		URL:         inst.ID,
		DisplayName: strings.TrimSpace(inst.DisplayName),
		Aliases:     uniqueStrings(append(append([]string{}, inst.Alternatives...), inst.Acronyms...)),
		Relevance:   inst.RelevanceScore,
		Attributes: map[string]string{
			"works_count":    strconv.Itoa(inst.WorksCount),
			"cited_by_count": strconv.Itoa(inst.CitedByCount),
		},
	}
	if cc := strings.TrimSpace(inst.CountryCode); cc != "" {
		rec.CountryCodes = []string{strings.ToUpper(cc)}
	}
	if inst.ROR != "" {
		rec.Attributes["ror"] = inst.ROR
	}
	return rec
}

func (a *author) record() entity.Record {
	rec := entity.Record{
		ID:          a.ID,
		URL:         a.ID,
		DisplayName: strings.TrimSpace(a.DisplayName),
		Aliases:     uniqueStrings(a.Alternatives),
		Relevance:   a.RelevanceScore,
		Attributes: map[string]string{
			"works_count":    strconv.Itoa(a.WorksCount),
			"cited_by_count": strconv.Itoa(a.CitedByCount),
		},
	}

	insts := a.LastKnownInstitutions
	if len(insts) == 0 {
		for _, aff := range a.Affiliations {
			insts = append(insts, aff.Institution)
		}
	}
	var names, codes []string
	for _, inst := range insts {
		names = append(names, inst.DisplayName)
		if inst.CountryCode != "" {
			codes = append(codes, strings.ToUpper(inst.CountryCode))
		}
	}
	rec.Affiliations = uniqueStrings(names)
	rec.CountryCodes = uniqueStrings(codes)

	if a.SummaryStats != nil {
		rec.Attributes["h_index"] = strconv.Itoa(a.SummaryStats.HIndex)
		rec.Attributes["i10_index"] = strconv.Itoa(a.SummaryStats.I10Index)
	}
	if a.ORCID != "" {
		rec.Attributes["orcid"] = a.ORCID
	}
	return rec
}

// uniqueStrings trims, drops blanks and duplicates, and keeps first-seen order.
func uniqueStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// getJSON fetches path and decodes the body into v. Failures are classified
// as entity.ErrTransient or entity.ErrPermanent.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	apiURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
		if err != nil {
			return entity.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.DebugContext(ctx, "openalex request", "path", path, "url", apiURL)
		body, err = httpcache.FetchURLWithValidator(ctx, c.cache, c.httpClient, req, c.logger, json.Valid)
		return classify(err)
	}

	var err error
	if c.throttle != nil {
		err = c.throttle.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return fmt.Errorf("openalex %s: %w", path, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return entity.Permanent(fmt.Errorf("decode openalex %s response: %w", path, err))
	}
	return nil
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case httpcache.Retryable(err):
		return entity.Transient(err)
	default:
		return entity.Permanent(err)
	}
}
