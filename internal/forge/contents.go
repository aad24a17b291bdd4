package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	perrors "git.home.luguber.info/inful/pagesmith/internal/errors"
)

// contentsFile is the wire shape of GET /contents for a single file.
type contentsFile struct {
	Content  string `json:"content"` // base64, may contain newlines
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
}

// updateResponse is the wire shape of PUT /contents.
type updateResponse struct {
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// FetchFiles reads the given paths from the branch tip, returning decoded
// content plus the blob SHA needed for the update precondition.
func (c *GitHubClient) FetchFiles(ctx context.Context, repo string, paths []string, branch string) ([]RepoFile, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	files := make([]RepoFile, 0, len(paths))
	for _, p := range paths {
		// The branch selector must travel as a query string; newRequest joins
		// the endpoint into the URL path, where a "?" would be escaped.
		endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, repo, p)
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = url.Values{"ref": {branch}}.Encode()
		var cf contentsFile
		if err := c.doRequest(req, &cf); err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cf.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode content of %s: %w", p, err)
		}
		files = append(files, RepoFile{Path: p, Content: data, SHA: cf.SHA})
	}
	return files, nil
}

// UpdateFiles overwrites each file via a per-file update call that requires
// the prior blob SHA. A stale SHA is a hard failure: no concurrent writer is
// expected within one task's lifetime, so a conflict means the task's view of
// the repository is wrong and the remaining updates are not attempted.
// Returns the SHA of the last commit created.
func (c *GitHubClient) UpdateFiles(ctx context.Context, repo string, updates []FileUpdate, message, branch string) (string, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	var lastCommit string
	for _, u := range updates {
		endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, repo, u.Path)
		req, err := c.newRequest(ctx, http.MethodPut, endpoint, map[string]any{
			"message": message,
			"content": base64.StdEncoding.EncodeToString([]byte(u.Content)),
			"sha":     u.PriorSHA,
			"branch":  branch,
		})
		if err != nil {
			return "", err
		}
		var resp updateResponse
		if err := c.doRequest(req, &resp); err != nil {
			if apiErr, ok := err.(*APIError); ok && (apiErr.IsConflict() || apiErr.IsValidation()) {
				return "", perrors.StaleContentHash(u.Path).WithContext("cause", apiErr.Error())
			}
			return "", err
		}
		lastCommit = resp.Commit.SHA
	}
	return lastCommit, nil
}
