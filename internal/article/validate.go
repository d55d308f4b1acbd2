package article

import "fmt"

// ValidationError describes why a submission was rejected. Its message is
// part of the API contract and is returned to clients verbatim.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func missingField(name string) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf("Missing required field: %s", name)}
}

// Validate checks a submission against the staging contract: title,
// sourceType and content.rawText are required, everything else is optional.
func (s Submission) Validate() error {
	if s.Title == "" {
		return missingField("title")
	}
	if s.SourceType == "" {
		return missingField("sourceType")
	}
	if s.Content == nil {
		return missingField("content")
	}
	if s.Content.RawText == "" {
		return &ValidationError{msg: "Field 'content' must be an object with a 'rawText' key"}
	}
	return nil
}
