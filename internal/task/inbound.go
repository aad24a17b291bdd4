package task

// InboundRecord is the wire shape of a task record as produced by the front
// door (HTTP ingress or queue subject). The secret is validated by the
// ingress and never travels further into the pipeline.
type InboundRecord struct {
	Email         string       `json:"email"`
	Secret        string       `json:"secret"`
	Task          string       `json:"task"`
	Round         int          `json:"round"`
	Nonce         string       `json:"nonce"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url"`
	Attachments   []Attachment `json:"attachments"`
}

// ToBuildTask resolves the round variant and strips the secret. The returned
// task is validated for the fields the pipeline depends on.
func (r InboundRecord) ToBuildTask() (BuildTask, error) {
	round, err := RoundFromWire(r.Round)
	if err != nil {
		return BuildTask{}, err
	}
	t := BuildTask{
		Email:         r.Email,
		Task:          r.Task,
		Round:         round,
		Nonce:         r.Nonce,
		Brief:         r.Brief,
		Checks:        r.Checks,
		EvaluationURL: r.EvaluationURL,
		Attachments:   r.Attachments,
	}
	if err := t.Validate(); err != nil {
		return BuildTask{}, err
	}
	return t, nil
}
