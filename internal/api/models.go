package api

import "github.com/povarna/generative-ai-agents/uni-guard/internal/models"

type AskRequest struct {
	Query     string `json:"query" validate:"required" description:"Question about courses, students or faculty"`
	SessionID string `json:"session_id,omitempty" validate:"max=128" description:"Client session, used for rate limiting and audit"`
}

type InputCheckRequest struct {
	Query string `json:"query" validate:"required" description:"Question to classify"`
}

type InputCheckResponse struct {
	Verdict        string              `json:"verdict" description:"ALLOW, REDACT or BLOCK"`
	Reasons        []models.ReasonCode `json:"reasons" description:"Reason codes in rule order"`
	RuleSetVersion string              `json:"rule_set_version" description:"Version of the rule set that decided"`
}

type HealthResponse struct {
	Status         string `json:"status" description:"Service status"`
	Version        string `json:"version" description:"API version"`
	RuleSetVersion string `json:"rule_set_version" description:"Loaded guardrail rule set"`
}
