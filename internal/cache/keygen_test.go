package cache

import (
	"strings"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	in := KeyInput{Prompt: "write a market analysis", Provider: "claude", Phase: 2}
	k1 := Key(in)
	k2 := Key(in)
	if k1 != k2 {
		t.Fatalf("same input produced different keys: %s vs %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(k1))
	}
	if k1 != strings.ToLower(k1) {
		t.Fatalf("key not lowercase: %s", k1)
	}
}

func TestKeyWhitespaceFolding(t *testing.T) {
	a := Key(KeyInput{Prompt: "hello   world"})
	b := Key(KeyInput{Prompt: "  hello\nworld \r\n"})
	if a != b {
		t.Fatalf("whitespace variants should collide: %s vs %s", a, b)
	}
}

func TestKeyCaseSensitive(t *testing.T) {
	a := Key(KeyInput{Prompt: "Hello world"})
	b := Key(KeyInput{Prompt: "hello world"})
	if a == b {
		t.Fatal("case variants should not collide")
	}
}

func TestKeyOptionalFields(t *testing.T) {
	base := Key(KeyInput{Prompt: "p"})
	withProvider := Key(KeyInput{Prompt: "p", Provider: "gemini"})
	withPhase := Key(KeyInput{Prompt: "p", Phase: 3})
	withModel := Key(KeyInput{Prompt: "p", Model: "pro"})

	if base == withProvider || base == withPhase || base == withModel {
		t.Fatal("optional fields must change the key when set")
	}
	if withProvider == withPhase || withPhase == withModel {
		t.Fatal("distinct optional fields must produce distinct keys")
	}
}

func TestKeyContextDigest(t *testing.T) {
	ctx := map[string]string{"phase1": "framing notes", "phase2": "research notes"}
	a := Key(KeyInput{Prompt: "p", Context: ctx})
	b := Key(KeyInput{Prompt: "p", Context: map[string]string{
		"phase2": "research notes", "phase1": "framing notes",
	}})
	if a != b {
		t.Fatal("context key order must not affect the key")
	}

	c := Key(KeyInput{Prompt: "p", Context: map[string]string{"phase1": "other"}})
	if a == c {
		t.Fatal("different context must produce a different key")
	}
	if a == Key(KeyInput{Prompt: "p"}) {
		t.Fatal("context presence must change the key")
	}
}
