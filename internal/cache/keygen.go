// Package cache implements the on-disk content-addressed response cache:
// deterministic key generation, a TTL/LRU file store, and a get-or-compute
// manager facade.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
)

// KeyInput carries the fields that make a response unique. Optional fields
// left at their zero value contribute no bytes to the key.
type KeyInput struct {
	Prompt   string
	Context  map[string]string
	Provider string
	Phase    int
	Model    string
}

// whitespaceRuns matches runs of CR, LF, and space characters.
var whitespaceRuns = regexp.MustCompile(`[ \r\n]+`)

// normalizePrompt collapses whitespace runs to a single space and trims the
// ends. Case and all other characters are preserved, so whitespace-variant
// prompts collide and case-variant prompts do not.
func normalizePrompt(prompt string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(prompt, " "))
}

// Key produces the deterministic 64-hex-character fingerprint for the
// input. Stable across processes and platforms: the fingerprint material is
// canonical JSON (encoding/json sorts map keys).
func Key(in KeyInput) string {
	material := map[string]any{
		"prompt": normalizePrompt(in.Prompt),
	}
	if len(in.Context) > 0 {
		material["context"] = contextDigest(in.Context)
	}
	if in.Provider != "" {
		material["agent"] = in.Provider
	}
	if in.Phase != 0 {
		material["phase"] = in.Phase
	}
	if in.Model != "" {
		material["model"] = in.Model
	}

	data, _ := json.Marshal(material)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// contextDigest reduces a context mapping to the first 16 hex characters of
// the SHA-256 of its canonical JSON form.
func contextDigest(ctx map[string]string) string {
	data, _ := json.Marshal(ctx)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
