// Package contracts implements the templated contract-completion support:
// the strict parser for model replies and a DOCX template renderer.
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReply means the generation collaborator's reply could not be
// validated as a contract-mode JSON object.
var ErrMalformedReply = errors.New("malformed contract reply")

const (
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"
)

// Reply is the structured contract-mode answer.
type Reply struct {
	Response  string            `json:"response"`
	Variables map[string]string `json:"variables"`
	Status    string            `json:"status"`
}

// ParseReply validates a model reply. The model is asked for bare JSON but
// routinely wraps it in code fences, so known wrappers are stripped before
// parsing. Anything else — missing fields, wrong types, unknown status —
// fails with ErrMalformedReply rather than a best-effort guess.
func ParseReply(raw string) (*Reply, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	for _, key := range []string{"response", "variables", "status"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedReply, key)
		}
	}

	var reply Reply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if reply.Status != StatusIncomplete && reply.Status != StatusComplete {
		return nil, fmt.Errorf("%w: invalid status %q", ErrMalformedReply, reply.Status)
	}
	if reply.Variables == nil {
		return nil, fmt.Errorf("%w: variables is null", ErrMalformedReply)
	}
	return &reply, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
