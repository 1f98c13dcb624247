package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"affilink/pkg/api"
	"affilink/pkg/fetch"
	"affilink/pkg/pipeline"
	"affilink/pkg/scrapers/generic"
	"affilink/pkg/scrapers/shopee"
	"affilink/pkg/store"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	client := fetch.New(fetch.Options{Timeout: 2 * time.Second, Attempts: 1, BaseDelay: time.Millisecond})
	registry := pipeline.NewRegistry(client,
		generic.Options{Timeout: 2 * time.Second, Attempts: 1, BaseDelay: time.Millisecond},
		shopee.Options{Timeout: 2 * time.Second},
	)
	return pipeline.New(registry, st, 0)
}

func TestParseLinkHandlerErrors(t *testing.T) {
	handler := parseLinkHandler(newTestPipeline(t))

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Missing URL",
			method:         http.MethodGet,
			target:         "/parse-link",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_url",
		},
		{
			name:           "Invalid URL",
			method:         http.MethodGet,
			target:         "/parse-link?url=not%20a%20url",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_url",
		},
		{
			name:           "Unsupported Platform Value",
			method:         http.MethodGet,
			target:         "/parse-link?url=https://www.amazon.com.br/dp/B1&platform=ebay",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "unsupported_platform",
		},
		{
			name:           "Bad Boolean Parameter",
			method:         http.MethodGet,
			target:         "/parse-link?url=https://www.amazon.com.br/dp/B1&saveToDb=maybe",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_parameter",
		},
		{
			name:           "Invalid JSON Body",
			method:         http.MethodPost,
			target:         "/parse-link",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_body",
		},
		{
			name:           "Method Not Allowed",
			method:         http.MethodDelete,
			target:         "/parse-link",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedCode:   "method_not_allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d; want %d", rr.Code, tt.expectedStatus)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("content type = %q", ct)
			}

			var pd api.ProblemDetails
			if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
				t.Fatalf("invalid JSON: %v. Body: %s", err, rr.Body.String())
			}
			if pd.Code != tt.expectedCode {
				t.Errorf("code = %q; want %q", pd.Code, tt.expectedCode)
			}
			if pd.Status != tt.expectedStatus {
				t.Errorf("body status = %d; want %d", pd.Status, tt.expectedStatus)
			}
		})
	}
}

func TestParseLinkHandlerSuccess(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="Cadeira Gamer"/>
		<meta property="og:image" content="https://cdn.example.com/chair.jpg"/>
		<meta property="product:price:amount" content="899.90"/>
		<meta property="product:price:currency" content="BRL"/>
	</head><body></body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	handler := parseLinkHandler(newTestPipeline(t))

	req := httptest.NewRequest(http.MethodGet, "/parse-link?url="+ts.URL+"/item/1&saveToDb=true", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp parseLinkResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Product == nil {
		t.Fatalf("expected success with product, got %s", rr.Body.String())
	}
	if resp.Product.Title != "Cadeira Gamer" {
		t.Errorf("title = %q", resp.Product.Title)
	}
	if resp.Product.Price != 899.90 {
		t.Errorf("price = %f", resp.Product.Price)
	}
	if resp.Product.Platform != "generic" {
		t.Errorf("platform = %q", resp.Product.Platform)
	}
	if resp.Product.ID == "" {
		t.Error("expected persisted product to carry an ID")
	}
}

func TestBatchHandler(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Luminária de Mesa"/></head><body></body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	handler := batchHandler(newTestPipeline(t))

	body := fmt.Sprintf(`[{"url":%q},{"url":"not a url"}]`, ts.URL+"/item/9")
	req := httptest.NewRequest(http.MethodPost, "/parse-link/batch", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var results []batchResult
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[0].Product == nil || results[0].Product.Title != "Luminária de Mesa" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Success || results[1].Error == nil || results[1].Error.Code != "invalid_url" {
		t.Errorf("second result = %+v", results[1])
	}

	// Rejects non-POST.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/parse-link/batch", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET batch status = %d", rr.Code)
	}
}
