package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLLMRequestSections(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	defer SetLLMWriter(nil)

	LogLLMRequest("oracle", "openai", "technical:ABC", "sys", "user prompt", "")
	LogLLMResponse("oracle", "openai", "technical:ABC", `{"signal":"Bullish"}`)

	out := buf.String()
	assert.Contains(t, out, "[LLM][oracle-request][openai][technical:ABC]")
	assert.Contains(t, out, "--- SYSTEM ---\nsys\n")
	assert.Contains(t, out, "--- USER ---\nuser prompt\n")
	assert.Contains(t, out, "[LLM][oracle-response][openai][technical:ABC]")
	assert.Equal(t, 2, strings.Count(out, "=====\n"))
}

func TestLogLLMWithoutWriterIsNoop(t *testing.T) {
	SetLLMWriter(nil)
	assert.NotPanics(t, func() {
		LogLLMResponse("oracle", "openai", "risk", "raw")
	})
}

func TestParseLevel(t *testing.T) {
	lv, ok := ParseLevel("WARNING")
	assert.True(t, ok)
	assert.Equal(t, "WARN", lv.String())

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestLogLLMFailureIncludesAttempt(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	defer SetLLMWriter(nil)

	LogLLMFailure("oracle", "openai", "risk:ABC", 2, assert.AnError)
	assert.Contains(t, buf.String(), "--- ATTEMPT#2 ---")
	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestLogLLMRequestDumpsPrettyPayload(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	EnableLLMPayloadDump(true)
	defer func() {
		SetLLMWriter(nil)
		EnableLLMPayloadDump(false)
	}()

	LogLLMRequest("oracle", "openai", "risk:ABC", "sys", "user", `{"type":"object"}`)
	assert.Contains(t, buf.String(), "--- PAYLOAD ---\n{\n  \"type\": \"object\"\n}\n")
}
