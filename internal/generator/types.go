package generator

// systemInstruction fixes the generation policy and the output format
// contract: exactly two labeled code fences, nothing else.
const systemInstruction = `You are a static web app generator. Given a brief,
a list of evaluation checks, and optional attachments, produce a complete,
self-contained single-page web app.

Respond with exactly two fenced code blocks and no other prose:
1. A block labeled "html" containing the full index.html (inline all CSS and
   JavaScript; no external build steps).
2. A block labeled "markdown" containing the full README.md describing the
   app, how it works, and how the checks are satisfied.

If existing index.html or README.md files are attached, treat them as the
current state of the app and edit them in place rather than starting over.`

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage carries either a plain string (system) or content parts (user).
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multi-part user message.
type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

// filePart references an uploaded file by its opaque handle.
type filePart struct {
	FileID string `json:"file_id"`
}

// chatResponse is the subset of the completion response the client consumes.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// fileObject is the subset of the file-store response the client consumes.
type fileObject struct {
	ID string `json:"id"`
}
