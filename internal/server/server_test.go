package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mwhitford/spamrelay/internal/lookup"
)

// stubLookup is a canned LookupClient for handler tests.
type stubLookup struct {
	result *lookup.Result
	err    error
	calls  int
}

func (s *stubLookup) CheckSpamScore(ctx context.Context, number string) (*lookup.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(lookups LookupClient) *Server {
	return New(Options{
		Lookups:         lookups,
		ServerName:      "spamrelay-test",
		ServerVersion:   "0.0.1",
		ProtocolVersion: "2024-11-05",
	})
}

// envelope decodes a marshaled response for assertions.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func decode(t *testing.T, data []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, data)
	}
	if env.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q, want 2.0", env.JSONRPC)
	}
	return env
}

func TestHandleMessage_Initialize(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"1.0"}}}`))

	env := decode(t, resp)
	if env.Error != nil {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	if string(env.ID) != "1" {
		t.Errorf("id = %s, want 1", env.ID)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Capabilities struct {
			Tools *struct{} `json:"tools"`
		} `json:"capabilities"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "spamrelay-test" {
		t.Errorf("serverInfo.name = %q", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("capabilities.tools missing")
	}
	if result.Instructions == "" {
		t.Error("instructions missing")
	}
}

func TestHandleMessage_Ping(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":"p1","method":"ping"}`))

	env := decode(t, resp)
	if env.Error != nil {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	if string(env.Result) != "{}" {
		t.Errorf("ping result = %s, want {}", env.Result)
	}
}

func TestHandleMessage_MethodNotFound(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`))

	env := decode(t, resp)
	if env.Error == nil {
		t.Fatal("expected error")
	}
	if env.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("code = %d, want %d", env.Error.Code, ErrCodeMethodNotFound)
	}
}

func TestHandleMessage_ParseError(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(), []byte(`{not json`))

	env := decode(t, resp)
	if env.Error == nil {
		t.Fatal("expected error")
	}
	if env.Error.Code != ErrCodeParseError {
		t.Errorf("code = %d, want %d", env.Error.Code, ErrCodeParseError)
	}
	if string(env.ID) != "null" {
		t.Errorf("id = %s, want null", env.ID)
	}
}

func TestHandleMessage_NotificationProducesNoResponse(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if resp != nil {
		t.Errorf("notification produced a response: %s", resp)
	}
}

func TestHandleMessage_StringIDPreserved(t *testing.T) {
	srv := newTestServer(&stubLookup{})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":"abc-123","method":"ping"}`))

	env := decode(t, resp)
	if string(env.ID) != `"abc-123"` {
		t.Errorf("id = %s, want \"abc-123\"", env.ID)
	}
}

func TestHandleMessage_LookupClientErrorsDontEscape(t *testing.T) {
	// Even an unexpected (non-typed) lookup error must stay inside a
	// success envelope on the search path.
	srv := newTestServer(&stubLookup{err: errors.New("boom")})
	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search","arguments":{"query":"+12345678901"}}}`))

	env := decode(t, resp)
	if env.Error != nil {
		t.Fatalf("lookup failure escaped as protocol error: %v", env.Error)
	}
}
