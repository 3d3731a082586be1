package domain

// SubjectType differentiates the callers the engine trusts: human
// administrators editing policies and the ticket-workflow service
// invoking lifecycle hooks. Credential management is external; this
// service only verifies platform-issued tokens.
type SubjectType string

const (
	SubjectTypeAdmin   SubjectType = "ADMIN"
	SubjectTypeAgent   SubjectType = "AGENT"
	SubjectTypeService SubjectType = "SERVICE"
)
