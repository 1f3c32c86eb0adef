package main

import (
	"encoding/json"

	"github.com/platewise/pricing/pricing"
)

// API request and response models

// RuleRequest is the request body for creating or updating a rule
type RuleRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Trigger     json.RawMessage    `json:"trigger"`
	Adjustment  pricing.Adjustment `json:"adjustment"`
	AppliesTo   []string           `json:"appliesTo,omitempty"`
	Priority    int                `json:"priority"`
	Status      string             `json:"status"`
}

// toRule converts the request into a domain rule with the given ID,
// decoding the tagged trigger condition.
func (req *RuleRequest) toRule(id string) (*pricing.Rule, error) {
	trigger, err := pricing.UnmarshalCondition(req.Trigger)
	if err != nil {
		return nil, err
	}

	return &pricing.Rule{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Trigger:     trigger,
		Adjustment:  req.Adjustment,
		AppliesTo:   req.AppliesTo,
		Priority:    req.Priority,
		Status:      pricing.Status(req.Status),
	}, nil
}

// RulesListResponse is the response for listing rules
type RulesListResponse struct {
	Rules []*pricing.Rule `json:"rules"`
}

// SimulateRequest is the request body for a what-if preview. DraftRules
// are merged with the stored active rules so an admin can see the effect
// of a rule before saving it.
type SimulateRequest struct {
	DraftRules []RuleRequest           `json:"rules,omitempty"`
	Context    pricing.ContextSnapshot `json:"context"`
	Catalog    []pricing.PricedItem    `json:"catalog"`
}

// EvaluateRequest is the request body for a live pricing evaluation
type EvaluateRequest struct {
	Context pricing.ContextSnapshot `json:"context"`
	Catalog []pricing.PricedItem    `json:"catalog"`
}

// SimulateResponse carries the per-item previews plus any warnings the
// caller should surface (e.g. a rule drove a price below zero and the
// composer clamped it).
type SimulateResponse struct {
	Previews       []pricing.ItemPreview `json:"previews"`
	Warnings       []string              `json:"warnings,omitempty"`
	EvaluationTime string                `json:"evaluationTime"`
}

// EvaluateResponse is the response for live evaluation
type EvaluateResponse struct {
	Previews       []pricing.ItemPreview `json:"previews"`
	FiredRules     []string              `json:"firedRules"`
	EvaluationTime string                `json:"evaluationTime"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
