// Package lookup wraps the single outbound call to the upstream
// carrier-lookup API and normalizes its response into a result record.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mwhitford/spamrelay/internal/creds"
	"github.com/mwhitford/spamrelay/internal/phone"
)

const (
	// DefaultBaseURL is the upstream lookup API endpoint.
	DefaultBaseURL = "https://lookups.twilio.com"

	// spamScoreAddOn is the query flag requesting the spam-score add-on.
	spamScoreAddOn = "nomorobo_spamscore"

	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 10 * time.Second

	// resultSource labels where the result data came from.
	resultSource = "Twilio Lookup API + Nomorobo"
)

// Result is a spam-reputation record for one phone number. It is built
// fresh on every call and never persisted.
type Result struct {
	ID                string    `json:"id"`
	PhoneNumberMasked string    `json:"phone_number_masked"`
	SpamScore         int       `json:"spam_score"`
	Reputation        string    `json:"reputation"`
	Carrier           string    `json:"carrier"`
	CountryCode       string    `json:"country_code"`
	PhoneType         string    `json:"phone_type"`
	CheckedAt         time.Time `json:"checked_at"`
	Source            string    `json:"source"`
	Confidence        string    `json:"confidence"`
}

// Client performs spam-score lookups against the upstream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cred       *creds.Credential
	now        func() time.Time
}

// Options configures a lookup client.
type Options struct {
	// BaseURL overrides the upstream endpoint (used in tests).
	BaseURL string
	// Credential is the auth pair for the upstream API. May be nil or
	// empty; the upstream will then reject the call with 401.
	Credential *creds.Credential
	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// New creates a lookup client.
func New(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		cred:       opts.Credential,
		now:        time.Now,
	}
}

// lookupPayload mirrors the upstream response shape. Every nested block
// is optional; absent fields fall back to defaults rather than failing.
type lookupPayload struct {
	CountryCode string `json:"country_code"`
	Type        string `json:"type"`
	Carrier     *struct {
		Name string `json:"name"`
	} `json:"carrier"`
	AddOns *struct {
		Results map[string]struct {
			Result *struct {
				Score *int `json:"score"`
			} `json:"result"`
		} `json:"results"`
	} `json:"add_ons"`
}

// CheckSpamScore performs one upstream lookup for a phone number.
// The number must be in external format (leading +, 10-15 digits); an
// invalid number fails immediately without a network call. Failures are
// returned as *Error with a Kind the caller can branch on.
func (c *Client) CheckSpamScore(ctx context.Context, number string) (*Result, error) {
	masked := phone.MaskNumber(number)

	if !phone.IsValidExternalFormat(number) {
		return nil, errInvalidFormat(masked)
	}

	u := fmt.Sprintf("%s/v1/PhoneNumbers/%s?AddOns=%s", c.baseURL, url.PathEscape(number), spamScoreAddOn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errTransport(err)
	}
	if c.cred != nil {
		req.SetBasicAuth(c.cred.AccountSID, c.cred.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound(masked)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errAuthFailed()
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errUpstream(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errTransport(err)
	}

	var payload lookupPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errTransport(fmt.Errorf("parse response: %w", err))
	}

	return c.buildResult(number, masked, &payload), nil
}

// buildResult normalizes the upstream payload into a Result, filling
// defaults for any missing block.
func (c *Client) buildResult(number, masked string, payload *lookupPayload) *Result {
	score := 0
	if payload.AddOns != nil {
		if entry, ok := payload.AddOns.Results[spamScoreAddOn]; ok && entry.Result != nil && entry.Result.Score != nil {
			score = *entry.Result.Score
		}
	}

	reputation := "CLEAN"
	if score == 1 {
		reputation = "SPAM"
	}

	confidence := "Low"
	if score == 0 || score == 1 {
		confidence = "High"
	}

	carrier := "Unknown"
	if payload.Carrier != nil && payload.Carrier.Name != "" {
		carrier = payload.Carrier.Name
	}
	countryCode := payload.CountryCode
	if countryCode == "" {
		countryCode = "Unknown"
	}
	phoneType := payload.Type
	if phoneType == "" {
		phoneType = "Unknown"
	}

	return &Result{
		ID:                phone.DocumentID(number),
		PhoneNumberMasked: masked,
		SpamScore:         score,
		Reputation:        reputation,
		Carrier:           carrier,
		CountryCode:       countryCode,
		PhoneType:         phoneType,
		CheckedAt:         c.now().UTC(),
		Source:            resultSource,
		Confidence:        confidence,
	}
}
