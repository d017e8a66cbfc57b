package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mwhitford/spamrelay/internal/events"
	"github.com/mwhitford/spamrelay/internal/phone"
)

// reportBaseURL is the synthetic report site used in result URLs.
const reportBaseURL = "https://spam-checker.example.com"

// toolDescriptor advertises a callable tool via tools/list.
type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type toolsCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolCallResult is the tools/call success payload: one text content
// item carrying the document JSON.
type toolCallResult struct {
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// resultItem is one entry in a search result list. Lookup failures are
// wrapped into the same shape (a synthetic error result) so agent
// callers always receive a parseable list.
type resultItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

type searchResults struct {
	Results []resultItem `json:"results"`
}

// fetchDocument is the fetch tool's response document.
type fetchDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// handleToolsList returns the static descriptors for search and fetch.
func (s *Server) handleToolsList() (any, *RPCError) {
	return toolsListResult{Tools: []toolDescriptor{
		{
			Name: "search",
			Description: "Search for spam reports on a phone number. Accepts a number in " +
				"E.164 format (+12345678901) or a bare digit run of 10 or more digits.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Phone number to check",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name: "fetch",
			Description: "Retrieve a spam analysis report by document ID from a prior " +
				"search result.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Document ID from search results (e.g. spam_check_abc12345)",
					},
				},
				"required": []string{"id"},
			},
		},
	}}, nil
}

// handleToolsCall routes a tools/call request to the named tool.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var req toolsCallRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}

	switch req.Name {
	case "search":
		return s.handleSearch(ctx, req.Arguments)
	case "fetch":
		return s.handleFetch(req.Arguments)
	default:
		return nil, ErrToolNotFound(req.Name)
	}
}

// handleSearch checks a phone number's spam reputation. Lookup failures
// of any kind (validation, upstream) come back as a synthetic error
// result item inside a success envelope; only a malformed outer request
// yields a protocol error.
func (s *Server) handleSearch(ctx context.Context, args json.RawMessage) (any, *RPCError) {
	var params struct {
		Query string `json:"query"`
	}
	if args != nil {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, ErrInvalidParams(err.Error())
		}
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		return wrapDocument(searchResults{Results: []resultItem{}})
	}

	number, ok := phone.SniffQuery(query)
	if !ok {
		// Not phone-number-shaped; nothing to look up.
		return wrapDocument(searchResults{Results: []resultItem{}})
	}

	masked := phone.MaskNumber(number)
	log.Printf("Spam check requested for %s", masked)

	result, err := s.opts.Lookups.CheckSpamScore(ctx, number)
	if err != nil {
		s.publish(events.NewLookupFailedEvent(masked, err.Error()))
		item := resultItem{
			ID:    fmt.Sprintf("error_%d", s.now().Unix()),
			Title: fmt.Sprintf("Error checking %s", masked),
			Text:  fmt.Sprintf("Could not check spam status: %v", err),
			URL:   reportBaseURL + "/error",
		}
		return wrapDocument(searchResults{Results: []resultItem{item}})
	}

	s.publish(events.NewLookupCompletedEvent(result.PhoneNumberMasked, result.SpamScore, result.Reputation))
	item := resultItem{
		ID:    result.ID,
		Title: fmt.Sprintf("Spam Check: %s", result.PhoneNumberMasked),
		Text: fmt.Sprintf("Phone: %s, Score: %d, Reputation: %s, Carrier: %s",
			result.PhoneNumberMasked, result.SpamScore, result.Reputation, result.Carrier),
		URL: fmt.Sprintf("%s/report/%s", reportBaseURL, result.ID),
	}
	return wrapDocument(searchResults{Results: []resultItem{item}})
}

// handleFetch returns a guidance document for a document id. Results
// are never persisted, so the original report cannot be retrieved; the
// document says so and points the caller back at search.
func (s *Server) handleFetch(args json.RawMessage) (any, *RPCError) {
	var params struct {
		ID string `json:"id"`
	}
	if args != nil {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, ErrInvalidParams(err.Error())
		}
	}
	if strings.TrimSpace(params.ID) == "" {
		return nil, ErrInvalidParams("id is required")
	}

	doc := fetchDocument{
		ID:    params.ID,
		Title: "Spam Check Report",
		Text: "Spam check results are not stored between calls, so this report " +
			"cannot be reconstructed from its ID alone. Run the search tool again " +
			"with the phone number to get a fresh spam reputation report.",
		URL: fmt.Sprintf("%s/report/%s", reportBaseURL, params.ID),
		Metadata: map[string]string{
			"note": "results are generated per request and not persisted",
		},
	}
	return wrapDocument(doc)
}

// wrapDocument serializes a document into the tools/call content shape.
func wrapDocument(doc any) (any, *RPCError) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, ErrInternalError(err.Error())
	}
	return toolCallResult{Content: []contentItem{{Type: "text", Text: string(data)}}}, nil
}
