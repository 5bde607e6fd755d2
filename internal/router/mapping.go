// Package router maps (phase, task, document type) to providers and
// dispatches requests through a gateway sender.
package router

import "aigenflow/internal/types"

// RouteKey is the composite lookup key for the task-to-provider table.
type RouteKey struct {
	Phase   int
	Task    string
	DocType string
}

// DocTypeBizplan is the business-plan document type.
const DocTypeBizplan = "bizplan"

// Canonical task tags per phase.
const (
	TaskBrainstormChatGPT   = "brainstorm_chatgpt"
	TaskValidateClaude      = "validate_claude"
	TaskDeepSearchGemini    = "deep_search_gemini"
	TaskFactCheckPerplexity = "fact_check_perplexity"
	TaskSwotChatGPT         = "swot_chatgpt"
	TaskNarrativeClaude     = "narrative_claude"
	TaskBusinessPlanClaude  = "business_plan_claude"
	TaskOutlineChatGPT      = "outline_chatgpt"
	TaskChartsGemini        = "charts_gemini"
	TaskVerifyPerplexity    = "verify_perplexity"
	TaskFinalReviewClaude   = "final_review_claude"
	TaskPolishClaude        = "polish_claude"
)

// DefaultMapping returns the canonical (phase, task, doc-type) -> provider
// assignments for the bizplan pipeline.
func DefaultMapping() map[RouteKey]string {
	return map[RouteKey]string{
		{1, TaskBrainstormChatGPT, DocTypeBizplan}:   types.ProviderChatGPT,
		{1, TaskValidateClaude, DocTypeBizplan}:      types.ProviderClaude,
		{2, TaskDeepSearchGemini, DocTypeBizplan}:    types.ProviderGemini,
		{2, TaskFactCheckPerplexity, DocTypeBizplan}: types.ProviderPerplexity,
		{3, TaskSwotChatGPT, DocTypeBizplan}:         types.ProviderChatGPT,
		{3, TaskNarrativeClaude, DocTypeBizplan}:     types.ProviderClaude,
		{4, TaskBusinessPlanClaude, DocTypeBizplan}:  types.ProviderClaude,
		{4, TaskOutlineChatGPT, DocTypeBizplan}:      types.ProviderChatGPT,
		{4, TaskChartsGemini, DocTypeBizplan}:        types.ProviderGemini,
		{5, TaskVerifyPerplexity, DocTypeBizplan}:    types.ProviderPerplexity,
		{5, TaskFinalReviewClaude, DocTypeBizplan}:   types.ProviderClaude,
		{5, TaskPolishClaude, DocTypeBizplan}:        types.ProviderClaude,
	}
}

// PhaseTasks returns the ordered task list for each phase of the bizplan
// pipeline.
func PhaseTasks() map[int][]string {
	return map[int][]string{
		1: {TaskBrainstormChatGPT, TaskValidateClaude},
		2: {TaskDeepSearchGemini, TaskFactCheckPerplexity},
		3: {TaskSwotChatGPT, TaskNarrativeClaude},
		4: {TaskBusinessPlanClaude, TaskOutlineChatGPT, TaskChartsGemini},
		5: {TaskVerifyPerplexity, TaskFinalReviewClaude, TaskPolishClaude},
	}
}
