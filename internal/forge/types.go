// Package forge implements the Git hosting boundary: repository CRUD, the
// blob/tree/commit/ref object graph, contents reads/updates with content-hash
// preconditions, and Pages activation.
package forge

// Repository is the subset of repository metadata the pipeline consumes.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// RepoFile is one file read from a branch tip: decoded content plus the blob
// SHA required as the optimistic-concurrency guard on updates.
type RepoFile struct {
	Path    string
	Content []byte
	SHA     string
}

// FileUpdate overwrites one file, guarded by the prior blob SHA.
type FileUpdate struct {
	Path     string
	Content  string
	PriorSHA string
}

// DefaultBranch is the only branch the pipeline ever touches.
const DefaultBranch = "main"
