package forge

import (
	"context"
	"fmt"
	"net/http"
)

// pagesSite is the wire shape of the pages sub-resource.
type pagesSite struct {
	HTMLURL string `json:"html_url"`
}

// EnablePages makes static hosting active for the repository, rooted at the
// branch's top-level directory, and returns the public URL. Idempotent: when
// hosting is already enabled the existing URL is returned and no write is
// issued.
func (c *GitHubClient) EnablePages(ctx context.Context, repo string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/pages", c.owner, repo)

	getReq, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var existing pagesSite
	err = c.doRequest(getReq, &existing)
	if err == nil {
		return existing.HTMLURL, nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return "", err
	}

	postReq, err := c.newRequest(ctx, http.MethodPost, endpoint, map[string]any{
		"source": map[string]any{
			"branch": DefaultBranch,
			"path":   "/",
		},
	})
	if err != nil {
		return "", err
	}
	var created pagesSite
	if err := c.doRequest(postReq, &created); err != nil {
		return "", err
	}
	if created.HTMLURL == "" {
		// Some deployments answer the POST with a bare 201; the URL shape is fixed.
		created.HTMLURL = fmt.Sprintf("https://%s.github.io/%s/", c.owner, repo)
	}
	return created.HTMLURL, nil
}
