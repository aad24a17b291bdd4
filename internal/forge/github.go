package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	perrors "git.home.luguber.info/inful/pagesmith/internal/errors"
)

// Options configures the GitHub client.
type Options struct {
	Token   string
	Owner   string // account owning the published repositories
	APIURL  string
	BaseURL string
	Timeout time.Duration
}

// GitHubClient implements the publish engine against the GitHub REST API.
type GitHubClient struct {
	httpClient *http.Client
	apiURL     string
	baseURL    string
	token      string
	owner      string
}

// NewGitHubClient creates a new GitHub client.
func NewGitHubClient(opts Options) (*GitHubClient, error) {
	if opts.Token == "" {
		return nil, perrors.ConfigRequired("github.token")
	}
	if opts.Owner == "" {
		return nil, perrors.ConfigRequired("github.owner")
	}

	client := &GitHubClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		apiURL:     opts.APIURL,
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		owner:      opts.Owner,
	}
	if client.httpClient.Timeout <= 0 {
		client.httpClient.Timeout = 30 * time.Second
	}
	if client.apiURL == "" {
		client.apiURL = "https://api.github.com"
	}
	if client.baseURL == "" {
		client.baseURL = "https://github.com"
	}
	return client, nil
}

// githubRepo is the wire shape of a repository.
type githubRepo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

func convertRepo(g *githubRepo) *Repository {
	return &Repository{
		Name:          g.Name,
		FullName:      g.FullName,
		HTMLURL:       g.HTMLURL,
		DefaultBranch: g.DefaultBranch,
		Private:       g.Private,
	}
}

// CreateRepository creates a new public, auto-initialized repository named
// after the task, with an optional description. A validation rejection
// (duplicate or illegal name) comes back as an *APIError with per-field
// detail; the name is task-derived and deterministic, so the caller never
// retries it.
func (c *GitHubClient) CreateRepository(ctx context.Context, name, description string) (*Repository, error) {
	payload := map[string]any{
		"name":      name,
		"private":   false,
		"auto_init": true,
	}
	if description != "" {
		payload["description"] = description
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/user/repos", payload)
	if err != nil {
		return nil, err
	}
	var repo githubRepo
	if err := c.doRequest(req, &repo); err != nil {
		return nil, err
	}
	return convertRepo(&repo), nil
}

// GetRepository gets a repository by name, or ErrRepositoryNotFound.
func (c *GitHubClient) GetRepository(ctx context.Context, name string) (*Repository, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s", c.owner, name)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var repo githubRepo
	if err := c.doRequest(req, &repo); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrRepositoryNotFound
		}
		return nil, err
	}
	return convertRepo(&repo), nil
}

// Helper methods

func (c *GitHubClient) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, endpoint)

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(string(jsonBody)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		var err error
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "Pagesmith/1.0")

	return req, nil
}

func (c *GitHubClient) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// decodeAPIError keeps the server's message and per-field validation detail.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}
	var wire struct {
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Message != "" {
		apiErr.Message = wire.Message
		apiErr.Errors = wire.Errors
	}
	return apiErr
}

// isStatus reports whether err is an APIError with the given status code.
func isStatus(err error, status int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == status
}
