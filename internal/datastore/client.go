package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// insertBatchSize caps the rows sent in one insert request.
const insertBatchSize = 100

// RemoteStore posts rows to a Datasette instance running the
// datasette-insert plugin. The plugin creates tables on first insert.
type RemoteStore struct {
	baseURL  string
	database string
	token    string
	client   *http.Client

	base *url.URL
}

func NewRemoteStore(baseURL, database, token string) *RemoteStore {
	return &RemoteStore{
		baseURL:  baseURL,
		database: database,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Open validates the base URL without contacting the server.
func (r *RemoteStore) Open(context.Context) error {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return fmt.Errorf("datasette url %q: %w", r.baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("datasette url %q: want http or https", r.baseURL)
	}
	r.base = u
	return nil
}

func (r *RemoteStore) Prepare(context.Context, Table) error { return nil }

func (r *RemoteStore) Insert(ctx context.Context, table string, rows []Row) error {
	if r.base == nil {
		return fmt.Errorf("datasette store %s is not open", r.baseURL)
	}
	endpoint := r.base.JoinPath("-", "insert", r.database, table).String()

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := r.post(ctx, endpoint, rows[start:end]); err != nil {
			return fmt.Errorf("insert rows %d-%d into %s: %w", start, end-1, table, err)
		}
	}
	return nil
}

func (r *RemoteStore) post(ctx context.Context, endpoint string, rows []Row) error {
	body, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 == 2 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(bytes.TrimSpace(msg)) == 0 {
		return fmt.Errorf("datasette returned %s", resp.Status)
	}
	return fmt.Errorf("datasette returned %s: %s", resp.Status, bytes.TrimSpace(msg))
}

func (r *RemoteStore) Close() error { return nil }
