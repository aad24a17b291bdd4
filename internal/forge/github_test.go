package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/pagesmith/internal/errors"
)

// fakeAPI is a scripted GitHub API. Handlers are keyed by "METHOD path"
// (path without query); every request is recorded.
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []string
	bodies   map[string][]json.RawMessage
	queries  map[string][]string
	srv      *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{
		handlers: make(map[string]http.HandlerFunc),
		bodies:   make(map[string][]json.RawMessage),
		queries:  make(map[string][]string),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.requests = append(f.requests, key)
		f.queries[key] = append(f.queries[key], r.URL.RawQuery)
		if r.Body != nil {
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
				f.bodies[key] = append(f.bodies[key], raw)
			}
		}
		h, ok := f.handlers[key]
		f.mu.Unlock()
		if !ok {
			t.Errorf("unexpected request: %s", key)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) on(method, path string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func (f *fakeAPI) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

func (f *fakeAPI) lastQuery(t *testing.T, method, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	queries := f.queries[method+" "+path]
	require.NotEmpty(t, queries, "no recorded request for %s %s", method, path)
	return queries[len(queries)-1]
}

func (f *fakeAPI) lastBody(t *testing.T, method, path string, out any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := f.bodies[method+" "+path]
	require.NotEmpty(t, bodies, "no recorded body for %s %s", method, path)
	require.NoError(t, json.Unmarshal(bodies[len(bodies)-1], out))
}

func newTestClient(t *testing.T, f *fakeAPI) *GitHubClient {
	c, err := NewGitHubClient(Options{Token: "tok", Owner: "octo", APIURL: f.srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewGitHubClient(t *testing.T) {
	t.Run("requires token and owner", func(t *testing.T) {
		_, err := NewGitHubClient(Options{Owner: "octo"})
		require.Error(t, err)
		_, err = NewGitHubClient(Options{Token: "tok"})
		require.Error(t, err)
	})
}

func TestCreateRepository(t *testing.T) {
	t.Run("creates a public auto-initialized repo", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodPost, "/user/repos", http.StatusCreated, map[string]any{
			"name":           "widget",
			"full_name":      "octo/widget",
			"html_url":       "https://github.com/octo/widget",
			"default_branch": "main",
		})
		c := newTestClient(t, f)

		repo, err := c.CreateRepository(context.Background(), "widget", "Weather Widget")
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/octo/widget", repo.HTMLURL)

		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Private     bool   `json:"private"`
			AutoInit    bool   `json:"auto_init"`
		}
		f.lastBody(t, http.MethodPost, "/user/repos", &body)
		assert.Equal(t, "widget", body.Name)
		assert.Equal(t, "Weather Widget", body.Description)
		assert.False(t, body.Private)
		assert.True(t, body.AutoInit)
	})

	t.Run("empty description is omitted", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodPost, "/user/repos", http.StatusCreated, map[string]any{"name": "widget"})
		c := newTestClient(t, f)

		_, err := c.CreateRepository(context.Background(), "widget", "")
		require.NoError(t, err)
		var body map[string]any
		f.lastBody(t, http.MethodPost, "/user/repos", &body)
		assert.NotContains(t, body, "description")
	})

	t.Run("surfaces validation detail on 422", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodPost, "/user/repos", http.StatusUnprocessableEntity, map[string]any{
			"message": "Repository creation failed.",
			"errors": []map[string]any{
				{"resource": "Repository", "field": "name", "code": "custom", "message": "name already exists on this account"},
			},
		})
		c := newTestClient(t, f)

		_, err := c.CreateRepository(context.Background(), "widget", "")
		require.Error(t, err)
		apiErr, ok := err.(*APIError)
		require.True(t, ok)
		assert.True(t, apiErr.IsValidation())
		require.Len(t, apiErr.Errors, 1)
		assert.Equal(t, "name", apiErr.Errors[0].Field)
	})
}

func TestGetRepository(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodGet, "/repos/octo/gone", http.StatusNotFound, map[string]any{"message": "Not Found"})
	c := newTestClient(t, f)

	_, err := c.GetRepository(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrRepositoryNotFound)
}

func TestCommitFiles(t *testing.T) {
	files := map[string]string{
		"index.html": "<html></html>",
		"README.md":  "# Widget",
		"LICENSE":    "MIT License",
	}

	t.Run("lands all files in one tree and one commit", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/git/ref/heads/main", http.StatusOK, map[string]any{
			"ref": "refs/heads/main", "object": map[string]any{"sha": "parent-sha", "type": "commit"},
		})
		f.on(http.MethodGet, "/repos/octo/widget/git/commits/parent-sha", http.StatusOK, map[string]any{
			"sha": "parent-sha", "tree": map[string]any{"sha": "base-tree"},
		})
		f.on(http.MethodPost, "/repos/octo/widget/git/blobs", http.StatusCreated, map[string]any{"sha": "blob-sha"})
		f.on(http.MethodPost, "/repos/octo/widget/git/trees", http.StatusCreated, map[string]any{"sha": "tree-sha"})
		f.on(http.MethodPost, "/repos/octo/widget/git/commits", http.StatusCreated, map[string]any{"sha": "commit-sha"})
		f.on(http.MethodPatch, "/repos/octo/widget/git/refs/heads/main", http.StatusOK, nil)
		c := newTestClient(t, f)

		sha, err := c.CommitFiles(context.Background(), "widget", files, "first commit for the task widget", "")
		require.NoError(t, err)
		assert.Equal(t, "commit-sha", sha)

		// One blob per file, exactly one tree and one commit.
		assert.Equal(t, 3, f.count(http.MethodPost, "/repos/octo/widget/git/blobs"))
		assert.Equal(t, 1, f.count(http.MethodPost, "/repos/octo/widget/git/trees"))
		assert.Equal(t, 1, f.count(http.MethodPost, "/repos/octo/widget/git/commits"))
		assert.Equal(t, 1, f.count(http.MethodPatch, "/repos/octo/widget/git/refs/heads/main"))

		var tree struct {
			BaseTree string `json:"base_tree"`
			Tree     []struct {
				Path string `json:"path"`
				Mode string `json:"mode"`
			} `json:"tree"`
		}
		f.lastBody(t, http.MethodPost, "/repos/octo/widget/git/trees", &tree)
		assert.Equal(t, "base-tree", tree.BaseTree)
		require.Len(t, tree.Tree, 3)
		assert.Equal(t, "LICENSE", tree.Tree[0].Path)
		assert.Equal(t, "README.md", tree.Tree[1].Path)
		assert.Equal(t, "index.html", tree.Tree[2].Path)

		var commit struct {
			Message string   `json:"message"`
			Parents []string `json:"parents"`
		}
		f.lastBody(t, http.MethodPost, "/repos/octo/widget/git/commits", &commit)
		assert.Equal(t, "first commit for the task widget", commit.Message)
		assert.Equal(t, []string{"parent-sha"}, commit.Parents)
	})

	t.Run("creates the ref when the branch has no commits", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/git/ref/heads/main", http.StatusNotFound, map[string]any{"message": "Not Found"})
		f.on(http.MethodPost, "/repos/octo/widget/git/blobs", http.StatusCreated, map[string]any{"sha": "blob-sha"})
		f.on(http.MethodPost, "/repos/octo/widget/git/trees", http.StatusCreated, map[string]any{"sha": "tree-sha"})
		f.on(http.MethodPost, "/repos/octo/widget/git/commits", http.StatusCreated, map[string]any{"sha": "commit-sha"})
		f.on(http.MethodPost, "/repos/octo/widget/git/refs", http.StatusCreated, nil)
		c := newTestClient(t, f)

		sha, err := c.CommitFiles(context.Background(), "widget", files, "first commit for the task widget", "main")
		require.NoError(t, err)
		assert.Equal(t, "commit-sha", sha)

		// Root commit: no base_tree, no parents, ref created not patched.
		var tree map[string]any
		f.lastBody(t, http.MethodPost, "/repos/octo/widget/git/trees", &tree)
		assert.NotContains(t, tree, "base_tree")
		var commit map[string]any
		f.lastBody(t, http.MethodPost, "/repos/octo/widget/git/commits", &commit)
		assert.NotContains(t, commit, "parents")
		assert.Equal(t, 1, f.count(http.MethodPost, "/repos/octo/widget/git/refs"))
		assert.Equal(t, 0, f.count(http.MethodPatch, "/repos/octo/widget/git/refs/heads/main"))
	})

	t.Run("rejects an empty file set", func(t *testing.T) {
		f := newFakeAPI(t)
		c := newTestClient(t, f)
		_, err := c.CommitFiles(context.Background(), "widget", nil, "msg", "main")
		require.Error(t, err)
	})
}

func TestFetchFiles(t *testing.T) {
	t.Run("decodes content and keeps the blob SHA", func(t *testing.T) {
		f := newFakeAPI(t)
		// GitHub wraps base64 content at 60 columns; the client must tolerate it.
		content := base64.StdEncoding.EncodeToString([]byte("<html></html>"))
		wrapped := content[:8] + "\n" + content[8:]
		f.on(http.MethodGet, "/repos/octo/widget/contents/index.html", http.StatusOK, map[string]any{
			"content": wrapped, "sha": "file-sha", "encoding": "base64",
		})
		c := newTestClient(t, f)

		files, err := c.FetchFiles(context.Background(), "widget", []string{"index.html"}, "main")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, []byte("<html></html>"), files[0].Content)
		assert.Equal(t, "file-sha", files[0].SHA)
	})

	t.Run("branch selector travels as a query string, not path", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/contents/README.md", http.StatusOK, map[string]any{
			"content": base64.StdEncoding.EncodeToString([]byte("# X")), "sha": "s", "encoding": "base64",
		})
		c := newTestClient(t, f)

		_, err := c.FetchFiles(context.Background(), "widget", []string{"README.md"}, "main")
		require.NoError(t, err)
		// The fake keys handlers by bare path; a ref baked into the path would
		// never reach this handler at all.
		assert.Equal(t, "ref=main", f.lastQuery(t, http.MethodGet, "/repos/octo/widget/contents/README.md"))
	})
}

func TestUpdateFiles(t *testing.T) {
	t.Run("updates with the prior SHA precondition", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodPut, "/repos/octo/widget/contents/index.html", http.StatusOK, map[string]any{
			"commit": map[string]any{"sha": "new-commit"},
		})
		c := newTestClient(t, f)

		sha, err := c.UpdateFiles(context.Background(), "widget", []FileUpdate{
			{Path: "index.html", Content: "<html>v2</html>", PriorSHA: "file-sha"},
		}, "Updated project task", "main")
		require.NoError(t, err)
		assert.Equal(t, "new-commit", sha)

		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		f.lastBody(t, http.MethodPut, "/repos/octo/widget/contents/index.html", &body)
		assert.Equal(t, "Updated project task", body.Message)
		assert.Equal(t, "file-sha", body.SHA)
		assert.Equal(t, "main", body.Branch)
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		require.NoError(t, err)
		assert.Equal(t, "<html>v2</html>", string(decoded))
	})

	t.Run("stale SHA becomes a publish conflict", func(t *testing.T) {
		for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
			t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
				f := newFakeAPI(t)
				f.on(http.MethodPut, "/repos/octo/widget/contents/index.html", status, map[string]any{
					"message": "index.html does not match",
				})
				c := newTestClient(t, f)

				_, err := c.UpdateFiles(context.Background(), "widget", []FileUpdate{
					{Path: "index.html", Content: "x", PriorSHA: "stale"},
				}, "Updated project task", "main")
				require.Error(t, err)
				assert.True(t, perrors.IsCategory(err, perrors.CategoryPublish))
			})
		}
	})
}

func TestEnablePages(t *testing.T) {
	t.Run("returns the existing site without writing", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/pages", http.StatusOK, map[string]any{
			"html_url": "https://octo.github.io/widget/",
		})
		c := newTestClient(t, f)

		url, err := c.EnablePages(context.Background(), "widget")
		require.NoError(t, err)
		assert.Equal(t, "https://octo.github.io/widget/", url)
		assert.Equal(t, 0, f.count(http.MethodPost, "/repos/octo/widget/pages"))
	})

	t.Run("creates the site when absent", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/pages", http.StatusNotFound, map[string]any{"message": "Not Found"})
		f.on(http.MethodPost, "/repos/octo/widget/pages", http.StatusCreated, map[string]any{
			"html_url": "https://octo.github.io/widget/",
		})
		c := newTestClient(t, f)

		url, err := c.EnablePages(context.Background(), "widget")
		require.NoError(t, err)
		assert.Equal(t, "https://octo.github.io/widget/", url)

		var body struct {
			Source struct {
				Branch string `json:"branch"`
				Path   string `json:"path"`
			} `json:"source"`
		}
		f.lastBody(t, http.MethodPost, "/repos/octo/widget/pages", &body)
		assert.Equal(t, "main", body.Source.Branch)
		assert.Equal(t, "/", body.Source.Path)
	})

	t.Run("falls back to the canonical URL on a bare answer", func(t *testing.T) {
		f := newFakeAPI(t)
		f.on(http.MethodGet, "/repos/octo/widget/pages", http.StatusNotFound, map[string]any{"message": "Not Found"})
		f.on(http.MethodPost, "/repos/octo/widget/pages", http.StatusCreated, map[string]any{})
		c := newTestClient(t, f)

		url, err := c.EnablePages(context.Background(), "widget")
		require.NoError(t, err)
		assert.Equal(t, "https://octo.github.io/widget/", url)
	})
}
