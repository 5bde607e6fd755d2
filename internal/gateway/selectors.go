package gateway

import "aigenflow/internal/types"

// Selectors describes the DOM hooks used to drive one provider's web UI.
// These are configuration, not code: UI changes are absorbed here.
type Selectors struct {
	// URL of the chat surface.
	URL string `json:"url"`

	// Input is the prompt editor element.
	Input string `json:"input"`

	// Submit is the send button. When empty the gateway presses Enter in
	// the input element instead.
	Submit string `json:"submit,omitempty"`

	// Response matches the assistant message blocks; the last match is the
	// current response.
	Response string `json:"response"`

	// Busy matches an element present while the provider is still
	// streaming. When empty the gateway falls back to text stabilization.
	Busy string `json:"busy,omitempty"`

	// LoggedIn matches an element only present for authenticated sessions.
	LoggedIn string `json:"logged_in"`
}

// DefaultSelectors returns the built-in selector table per provider tag.
// Override via config when a provider ships a UI change.
func DefaultSelectors() map[string]Selectors {
	return map[string]Selectors{
		types.ProviderClaude: {
			URL:      "https://claude.ai/new",
			Input:    "div[contenteditable='true']",
			Response: "div[data-testid='assistant-message']",
			Busy:     "button[aria-label='Stop response']",
			LoggedIn: "div[data-testid='user-menu']",
		},
		types.ProviderChatGPT: {
			URL:      "https://chatgpt.com/",
			Input:    "#prompt-textarea",
			Submit:   "button[data-testid='send-button']",
			Response: "div[data-message-author-role='assistant']",
			Busy:     "button[data-testid='stop-button']",
			LoggedIn: "button[data-testid='profile-button']",
		},
		types.ProviderGemini: {
			URL:      "https://gemini.google.com/app",
			Input:    "div.ql-editor",
			Submit:   "button.send-button",
			Response: "message-content",
			Busy:     "div.streaming-indicator",
			LoggedIn: "img.gb_P",
		},
		types.ProviderPerplexity: {
			URL:      "https://www.perplexity.ai/",
			Input:    "textarea[placeholder]",
			Submit:   "button[aria-label='Submit']",
			Response: "div.prose",
			Busy:     "div[data-testid='loading-indicator']",
			LoggedIn: "button[data-testid='user-avatar']",
		},
	}
}
