// Package sheets provides the external spreadsheet sink adapter. Every
// distribution pushes a copy of the lead's mapped fields to the customer
// batch's configured sheet target.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadrouter_backend/platform/logger"
)

// Row is an ordered set of named column values for one appended sheet row.
type Row map[string]string

// LeadRow maps lead fields to the sink's column schema.
func LeadRow(firstName, lastName, email, phone, zipCode, city, category, kind string) Row {
	return Row{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
		"phone":      phone,
		"zip_code":   zipCode,
		"city":       city,
		"category":   category,
		"kind":       kind,
		"routed_at":  time.Now().UTC().Format(time.RFC3339),
	}
}

// Sink appends lead rows to an external spreadsheet-like target. The contract
// is append-only ("next empty row" semantics on the remote side), so
// concurrent appends for the same target never overwrite each other.
type Sink interface {
	AppendRow(ctx context.Context, target string, row Row) error
}

// HTTPSink posts rows to a sheet bridge endpoint (e.g. an Apps Script web
// app) that performs the actual append.
type HTTPSink struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPSink creates an HTTPSink against the configured bridge URL.
func NewHTTPSink(baseURL, token string, log *logger.Logger) *HTTPSink {
	return &HTTPSink{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type appendRequest struct {
	Target string `json:"target"`
	Row    Row    `json:"row"`
}

// AppendRow posts one row for the target sheet.
func (s *HTTPSink) AppendRow(ctx context.Context, target string, row Row) error {
	if target == "" {
		return fmt.Errorf("sheet sink: empty target")
	}

	payload, err := json.Marshal(appendRequest{Target: target, Row: row})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheet sink: upstream status %d", resp.StatusCode)
	}

	return nil
}

// NoopSink is used when no sink is configured; appends succeed silently.
type NoopSink struct{}

// AppendRow does nothing.
func (NoopSink) AppendRow(context.Context, string, Row) error { return nil }
