package contracts

import (
	"errors"
	"testing"
)

func TestParseReplyPlainJSON(t *testing.T) {
	raw := `{"response":"Tên bên thuê là gì?","variables":{"tenant":"","rent":""},"status":"incomplete"}`
	reply, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.Status != StatusIncomplete || len(reply.Variables) != 2 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestParseReplyStripsCodeFences(t *testing.T) {
	cases := []string{
		"```json\n{\"response\":\"ok\",\"variables\":{\"tenant\":\"Ana\"},\"status\":\"complete\"}\n```",
		"```\n{\"response\":\"ok\",\"variables\":{\"tenant\":\"Ana\"},\"status\":\"complete\"}\n```",
		"  {\"response\":\"ok\",\"variables\":{\"tenant\":\"Ana\"},\"status\":\"complete\"}  ",
	}
	for _, raw := range cases {
		reply, err := ParseReply(raw)
		if err != nil {
			t.Fatalf("ParseReply(%q): %v", raw, err)
		}
		if reply.Status != StatusComplete || reply.Variables["tenant"] != "Ana" {
			t.Fatalf("unexpected reply for %q: %+v", raw, reply)
		}
	}
}

func TestParseReplyRejectsDeviations(t *testing.T) {
	cases := map[string]string{
		"not json":          "the tenant is called Ana",
		"empty":             "",
		"fenced garbage":    "```json\nnope\n```",
		"missing response":  `{"variables":{},"status":"complete"}`,
		"missing variables": `{"response":"x","status":"complete"}`,
		"missing status":    `{"response":"x","variables":{}}`,
		"bad status":        `{"response":"x","variables":{},"status":"done"}`,
		"null variables":    `{"response":"x","variables":null,"status":"complete"}`,
		"wrong var type":    `{"response":"x","variables":{"a":3},"status":"complete"}`,
	}
	for name, raw := range cases {
		if _, err := ParseReply(raw); !errors.Is(err, ErrMalformedReply) {
			t.Errorf("%s: expected ErrMalformedReply, got %v", name, err)
		}
	}
}
