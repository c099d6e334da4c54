package couch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"survey-runner/internal/app"
	"survey-runner/internal/domain"
)

// HTTPClient lets hosts inject their own transport (timeouts, retries,
// proxies live there, not here).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config wires the gateway to one database of a CouchDB-style store.
type Config struct {
	BaseURL  string
	Database string
	Username string
	Password string
	Client   HTTPClient
}

// Gateway implements app.SubmissionGateway against a document store where
// every document carries an opaque _id and _rev, _find selects by fields,
// and writes with a stale _rev come back as a conflict status.
type Gateway struct {
	base   string
	db     string
	user   string
	pass   string
	client HTTPClient
}

func NewGateway(cfg Config) *Gateway {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		db:     cfg.Database,
		user:   cfg.Username,
		pass:   cfg.Password,
		client: client,
	}
}

func (g *Gateway) FindSubmission(ctx context.Context, parentID, userID string) (app.DocRef, bool, error) {
	query := map[string]any{
		"selector": map[string]any{
			"parentId": parentID,
			"user.id":  userID,
		},
		"fields": []string{"_id", "_rev"},
		"limit":  1,
	}
	var out struct {
		Docs []struct {
			ID  string `json:"_id"`
			Rev string `json:"_rev"`
		} `json:"docs"`
	}
	if err := g.post(ctx, g.db+"/_find", query, &out); err != nil {
		return app.DocRef{}, false, err
	}
	if len(out.Docs) == 0 {
		return app.DocRef{}, false, nil
	}
	return app.DocRef{ID: out.Docs[0].ID, Rev: out.Docs[0].Rev}, true, nil
}

func (g *Gateway) QuestionnaireRevision(ctx context.Context, questionnaireID string) (string, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.db+"/"+url.PathEscape(questionnaireID), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", domain.ErrQuestionnaireNotFound, questionnaireID)
	case resp.StatusCode >= 300:
		return "", statusError(resp)
	}
	var doc struct {
		Rev string `json:"_rev"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: decode revision: %v", domain.ErrTransport, err)
	}
	return doc.Rev, nil
}

func (g *Gateway) Save(ctx context.Context, sub domain.Submission) (app.DocRef, error) {
	var out struct {
		ID  string `json:"id"`
		Rev string `json:"rev"`
	}
	if err := g.post(ctx, g.db, sub, &out); err != nil {
		return app.DocRef{}, err
	}
	return app.DocRef{ID: out.ID, Rev: out.Rev}, nil
}

func (g *Gateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := g.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrRevisionConflict, path)
	case resp.StatusCode >= 300:
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTransport, err)
	}
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.base+"/"+path, body)
	if err != nil {
		return nil, err
	}
	if g.user != "" {
		req.SetBasicAuth(g.user, g.pass)
	}
	return req, nil
}

// statusError maps every non-conflict failure status onto the transport
// error: the core does not distinguish refusal from timeout from outage.
func statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s: %s", domain.ErrTransport, resp.Status, strings.TrimSpace(string(detail)))
}
