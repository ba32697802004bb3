package modrinth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"catalog-discovery/config"
)

const defaultTimeout = 15 * time.Second

// maxSearchLimit is the largest page the search endpoint serves.
const maxSearchLimit = 100

// Client handles communication with the Modrinth API.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new Modrinth API client using the provided configuration.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	if cfg.ModrinthAPIURL == "" {
		return nil, fmt.Errorf("MODRINTH_API_URL is not configured")
	}
	return &Client{
		BaseURL:   cfg.ModrinthAPIURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

func (c *Client) makeRequest(ctx context.Context, path string, queryParams url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if queryParams != nil {
		req.URL.RawQuery = queryParams.Encode()
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api request failed: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode json response: %w", err)
		}
	}
	return nil
}

// SearchOptions selects one page of the public project search.
type SearchOptions struct {
	Query string
	// Index is the server-side sort: relevance, downloads, follows, newest
	// or updated.
	Index  string
	Offset int
	Limit  int
	// Facets is the raw facets filter, e.g. [["project_type:mod"]].
	Facets string
}

// SearchProjects runs one page of the public /search endpoint.
func (c *Client) SearchProjects(ctx context.Context, opts SearchOptions) (*SearchResponse, error) {
	params := url.Values{}
	if opts.Query != "" {
		params.Set("query", opts.Query)
	}
	if opts.Index != "" {
		params.Set("index", opts.Index)
	}
	if opts.Facets != "" {
		params.Set("facets", opts.Facets)
	}
	limit := opts.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(max(opts.Offset, 0)))

	var res SearchResponse
	if err := c.makeRequest(ctx, "/search", params, &res); err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	return &res, nil
}

// GetProject retrieves details for a specific project.
func (c *Client) GetProject(ctx context.Context, slug string) (*Project, error) {
	var project Project
	if err := c.makeRequest(ctx, "/project/"+url.PathEscape(slug), nil, &project); err != nil {
		return nil, fmt.Errorf("failed to get project '%s': %w", slug, err)
	}
	return &project, nil
}

// ProjectOwner returns the username of the project's owner, or of its first
// listed member when no one holds the Owner role.
func (c *Client) ProjectOwner(ctx context.Context, slug string) (string, error) {
	var members []TeamMember
	if err := c.makeRequest(ctx, "/project/"+url.PathEscape(slug)+"/members", nil, &members); err != nil {
		return "", fmt.Errorf("failed to get members of '%s': %w", slug, err)
	}
	for _, m := range members {
		if m.Role == "Owner" {
			return m.User.Username, nil
		}
	}
	if len(members) > 0 {
		return members[0].User.Username, nil
	}
	return "", nil
}

// TeamMember is one entry of a project's team.
type TeamMember struct {
	Role string `json:"role"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

// SearchResponse is one page of search hits.
type SearchResponse struct {
	Hits      []SearchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

// SearchHit is a project as returned by /search.
type SearchHit struct {
	ProjectID    string    `json:"project_id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Author       string    `json:"author"`
	Categories   []string  `json:"categories"`
	Versions     []string  `json:"versions"`
	Downloads    int64     `json:"downloads"`
	Follows      int64     `json:"follows"`
	ProjectType  string    `json:"project_type"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

// Project represents a Modrinth project.
type Project struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Categories   []string  `json:"categories"`
	GameVersions []string  `json:"game_versions"`
	Downloads    int64     `json:"downloads"`
	Followers    int64     `json:"followers"`
	ProjectType  string    `json:"project_type"`
	Status       string    `json:"status"`
	Published    time.Time `json:"published"`
	Updated      time.Time `json:"updated"`
}
