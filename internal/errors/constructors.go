package errors

// Convenience functions for common error patterns

// Config errors

func ConfigRequired(field string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

// Input errors (malformed task records, bad attachments)

func InputError(reason string) *PipelineError {
	return New(CategoryInput, SeverityError, reason)
}

func MalformedAttachment(name, reason string) *PipelineError {
	return New(CategoryInput, SeverityError, "malformed attachment data URL").
		WithContext("attachment", name).
		WithContext("reason", reason)
}

func InvalidRound(round int) *PipelineError {
	return New(CategoryInput, SeverityError, "round must be 1 or 2").
		WithContext("round", round)
}

// Generation errors (the absent-artifact case is not an error; see artifact.Artifact)

func GenerationTransport(cause error) *PipelineError {
	return Wrap(cause, CategoryGeneration, SeverityError, "content generator call failed")
}

// Publish errors

func PublishFailed(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryPublish, SeverityError, "publish operation failed").
		WithContext("operation", operation)
}

func RepoValidation(name string, cause error) *PipelineError {
	return Wrap(cause, CategoryPublish, SeverityError, "repository creation rejected").
		WithContext("repository", name)
}

func StaleContentHash(path string) *PipelineError {
	return New(CategoryPublish, SeverityError, "content hash precondition failed").
		WithContext("path", path)
}

// Delivery errors (always retryable inside the dispatcher's attempt budget)

func DeliveryTransport(cause error) *PipelineError {
	return &PipelineError{
		Category:  CategoryDelivery,
		Severity:  SeverityWarning,
		Message:   "callback delivery attempt failed",
		Cause:     cause,
		Retryable: true,
	}
}
