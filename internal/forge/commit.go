package forge

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

// Wire shapes for the git database API.

type gitRef struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

type gitCommit struct {
	SHA  string `json:"sha"`
	Tree struct {
		SHA string `json:"sha"`
	} `json:"tree"`
}

type gitBlob struct {
	SHA string `json:"sha"`
}

type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type gitTree struct {
	SHA string `json:"sha"`
}

// branchHead returns the commit SHA the branch ref points at, or
// ErrBranchNotFound when the branch has no commits yet. GitHub answers 404
// for a missing ref and 409 for a repository with no git database at all;
// both mean the same thing here.
func (c *GitHubClient) branchHead(ctx context.Context, repo, branch string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", c.owner, repo, branch)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var ref gitRef
	if err := c.doRequest(req, &ref); err != nil {
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusConflict) {
			return "", ErrBranchNotFound
		}
		return "", err
	}
	return ref.Object.SHA, nil
}

// commitTreeSHA returns the tree SHA of a commit.
func (c *GitHubClient) commitTreeSHA(ctx context.Context, repo, commitSHA string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/commits/%s", c.owner, repo, commitSHA)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var commit gitCommit
	if err := c.doRequest(req, &commit); err != nil {
		return "", err
	}
	return commit.Tree.SHA, nil
}

// createBlob stores one file's content and returns the blob SHA.
func (c *GitHubClient) createBlob(ctx context.Context, repo, content string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/git/blobs", c.owner, repo)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, map[string]any{
		"content":  content,
		"encoding": "utf-8",
	})
	if err != nil {
		return "", err
	}
	var blob gitBlob
	if err := c.doRequest(req, &blob); err != nil {
		return "", err
	}
	return blob.SHA, nil
}

// CommitFiles lands the full file map in exactly one commit on the branch:
// one blob per file, one tree from all blobs in a single call, one commit
// pointing at that tree, then a ref fast-forward (or ref creation when the
// branch has no commits yet). A reader of the branch tip can never observe a
// partial file set.
func (c *GitHubClient) CommitFiles(ctx context.Context, repo string, files map[string]string, message, branch string) (string, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files to commit")
	}

	parentSHA, err := c.branchHead(ctx, repo, branch)
	firstCommit := false
	if err != nil {
		if err != ErrBranchNotFound {
			return "", err
		}
		firstCommit = true
	}

	var baseTree string
	if !firstCommit {
		baseTree, err = c.commitTreeSHA(ctx, repo, parentSHA)
		if err != nil {
			return "", err
		}
	}

	// Sorted for a deterministic request order.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]treeEntry, 0, len(paths))
	for _, p := range paths {
		blobSHA, err := c.createBlob(ctx, repo, files[p])
		if err != nil {
			return "", err
		}
		entries = append(entries, treeEntry{Path: p, Mode: "100644", Type: "blob", SHA: blobSHA})
	}

	treePayload := map[string]any{"tree": entries}
	if baseTree != "" {
		treePayload["base_tree"] = baseTree
	}
	treeReq, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/trees", c.owner, repo), treePayload)
	if err != nil {
		return "", err
	}
	var tree gitTree
	if err := c.doRequest(treeReq, &tree); err != nil {
		return "", err
	}

	commitPayload := map[string]any{
		"message": message,
		"tree":    tree.SHA,
	}
	if !firstCommit {
		commitPayload["parents"] = []string{parentSHA}
	}
	commitReq, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/commits", c.owner, repo), commitPayload)
	if err != nil {
		return "", err
	}
	var commit gitCommit
	if err := c.doRequest(commitReq, &commit); err != nil {
		return "", err
	}

	if firstCommit {
		refReq, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", c.owner, repo), map[string]any{
			"ref": "refs/heads/" + branch,
			"sha": commit.SHA,
		})
		if err != nil {
			return "", err
		}
		if err := c.doRequest(refReq, nil); err != nil {
			return "", err
		}
	} else {
		refReq, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", c.owner, repo, branch), map[string]any{
			"sha": commit.SHA,
		})
		if err != nil {
			return "", err
		}
		if err := c.doRequest(refReq, nil); err != nil {
			return "", err
		}
	}

	return commit.SHA, nil
}
