// Package task defines the build task record consumed by the pipeline and the
// callback payload reported back to the requester.
package task

import (
	"git.home.luguber.info/inful/pagesmith/internal/errors"
)

// RoundKind is the tagged variant behind the wire-level round integer.
// It is resolved once at ingestion; the pipeline never compares raw integers.
type RoundKind int

const (
	// RoundCreate builds a fresh repository and site (wire round 1).
	RoundCreate RoundKind = iota + 1
	// RoundUpdate revises an existing site in place (wire round 2).
	RoundUpdate
)

// String returns the round name for logs.
func (r RoundKind) String() string {
	switch r {
	case RoundCreate:
		return "create"
	case RoundUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Wire returns the integer carried on the wire and in callback payloads.
func (r RoundKind) Wire() int { return int(r) }

// RoundFromWire maps the inbound round integer to a RoundKind.
func RoundFromWire(round int) (RoundKind, error) {
	switch round {
	case 1:
		return RoundCreate, nil
	case 2:
		return RoundUpdate, nil
	default:
		return 0, errors.InvalidRound(round)
	}
}

// BuildTask is one accepted build request. The Task field doubles as the
// target repository name. Immutable once accepted; owned by a single
// orchestrator run until its terminal callback attempt completes.
type BuildTask struct {
	Email         string       `json:"email"`
	Task          string       `json:"task"`
	Round         RoundKind    `json:"-"`
	Nonce         string       `json:"nonce"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url"`
	Attachments   []Attachment `json:"attachments"`
}

// Validate checks the fields the pipeline depends on. The secret check and
// payload shape validation belong to the ingress, not here.
func (t *BuildTask) Validate() error {
	if t.Task == "" {
		return errors.InputError("task name is required")
	}
	if t.EvaluationURL == "" {
		return errors.InputError("evaluation URL is required")
	}
	if t.Round != RoundCreate && t.Round != RoundUpdate {
		return errors.InvalidRound(int(t.Round))
	}
	return nil
}

// RepositoryName returns the repository the task publishes to.
func (t *BuildTask) RepositoryName() string { return t.Task }

// PublishResult is produced only by a fully successful publish.
type PublishResult struct {
	RepositoryURL string
	CommitSHA     string
	PagesURL      string
}

// CallbackPayload is the JSON body delivered to the evaluation URL. The
// failure shape carries only the identity fields; the success shape adds the
// publish result. The receiver distinguishes them by the presence of
// repo_url, so the result fields must be omitted entirely on failure.
type CallbackPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
	PagesURL  string `json:"pages_url,omitempty"`
}

// FailurePayload builds the failure-shaped callback body for a task.
func FailurePayload(t *BuildTask) CallbackPayload {
	return CallbackPayload{
		Email: t.Email,
		Task:  t.Task,
		Round: t.Round.Wire(),
		Nonce: t.Nonce,
	}
}

// SuccessPayload builds the success-shaped callback body for a task.
func SuccessPayload(t *BuildTask, res PublishResult) CallbackPayload {
	p := FailurePayload(t)
	p.RepoURL = res.RepositoryURL
	p.CommitSHA = res.CommitSHA
	p.PagesURL = res.PagesURL
	return p
}

// IsSuccess reports whether the payload carries the success shape.
func (p CallbackPayload) IsSuccess() bool { return p.RepoURL != "" }
