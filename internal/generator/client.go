// Package generator turns a task brief into a generated artifact through a
// chat-completions API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	perrors "git.home.luguber.info/inful/pagesmith/internal/errors"

	"git.home.luguber.info/inful/pagesmith/internal/artifact"
	"git.home.luguber.info/inful/pagesmith/internal/task"
)

// Options configures the generator client.
type Options struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string
	Timeout time.Duration
}

// Client calls the chat-completions API. One Generate call makes exactly one
// completion request (plus file uploads for binary attachments); retry is the
// caller's concern and the caller chooses not to.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	model      string
}

// NewClient creates a generator client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, perrors.ConfigRequired("generator.api_key")
	}
	apiURL := opts.BaseURL
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	model := opts.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		token:      opts.APIKey,
		model:      model,
	}, nil
}

// Generate builds the prompt for one task and returns the extracted artifact.
//
// A nil artifact with nil error means the model produced no usable fenced
// blocks (soft failure). A non-nil error means the attachments were malformed
// (input error) or the remote call failed (transport error).
func (c *Client) Generate(ctx context.Context, brief string, checks []string, attachments []task.Attachment) (*artifact.Artifact, error) {
	parts, err := c.buildUserParts(ctx, brief, checks, attachments)
	if err != nil {
		return nil, err
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: parts},
		},
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", reqBody)
	if err != nil {
		return nil, perrors.GenerationTransport(err)
	}

	var resp chatResponse
	if err := c.doRequest(req, &resp); err != nil {
		return nil, perrors.GenerationTransport(err)
	}

	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return artifact.Extract(resp.Choices[0].Message.Content), nil
}

// buildUserParts assembles the user message: the brief, the checks joined as
// text, and one content part per attachment. Text-like attachments are
// inlined; everything else is uploaded to the file store and referenced.
func (c *Client) buildUserParts(ctx context.Context, brief string, checks []string, attachments []task.Attachment) ([]contentPart, error) {
	var sb strings.Builder
	sb.WriteString(brief)
	if len(checks) > 0 {
		sb.WriteString("\n\nThe result will be evaluated against these checks:\n")
		for _, check := range checks {
			sb.WriteString("- ")
			sb.WriteString(check)
			sb.WriteString("\n")
		}
	}
	parts := []contentPart{{Type: "text", Text: sb.String()}}

	for _, att := range attachments {
		dec, err := att.Decode()
		if err != nil {
			return nil, err
		}
		if dec.IsText() {
			parts = append(parts, contentPart{
				Type: "text",
				Text: fmt.Sprintf("Attachment %q (%s):\n```\n%s\n```", dec.Name, dec.MIMEType, string(dec.Data)),
			})
			continue
		}
		fileID, err := c.uploadFile(ctx, dec)
		if err != nil {
			return nil, perrors.GenerationTransport(err)
		}
		parts = append(parts, contentPart{Type: "file", File: &filePart{FileID: fileID}})
	}
	return parts, nil
}

// uploadFile pushes a binary attachment to the generator's file store and
// returns its opaque handle.
func (c *Client) uploadFile(ctx context.Context, dec task.DecodedAttachment) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", dec.Name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(dec.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	u, err := c.endpoint("/files")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uploaded fileObject
	if err := c.do(req, &uploaded); err != nil {
		return "", err
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("file upload returned no id")
	}
	return uploaded.ID, nil
}

func (c *Client) endpoint(p string) (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, p)
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u, err := c.endpoint(endpoint)
	if err != nil {
		return nil, err
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result any) error {
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("generator API error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
