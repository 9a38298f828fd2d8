package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cloudlib/core"
	"github.com/goliatone/go-cloudlib/transport"
)

type graphQLCall struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type fakeCloudLib struct {
	mu           sync.Mutex
	graphQLCalls []graphQLCall
	authHeaders  []string
	uploads      []map[string]any

	graphQLResponse string
	downloadStatus  int
	downloadBody    string
	uploadStatus    int
	uploadBody      string
}

func (f *fakeCloudLib) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var call graphQLCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("decode graphql body: %v", err)
		}
		f.mu.Lock()
		f.graphQLCalls = append(f.graphQLCalls, call)
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, f.graphQLResponse)
	})
	mux.HandleFunc("/infomodel/download/", func(w http.ResponseWriter, r *http.Request) {
		status := f.downloadStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, f.downloadBody)
	})
	mux.HandleFunc("/infomodel/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT upload, got %s", r.Method)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.uploads = append(f.uploads, payload)
		f.mu.Unlock()
		w.WriteHeader(f.uploadStatus)
		_, _ = io.WriteString(w, f.uploadBody)
	})
	return mux
}

func newTestRegistry(t *testing.T, fake *fakeCloudLib, mutate func(*Config)) *Registry {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	if mutate != nil {
		mutate(&cfg)
	}
	registry, err := New(cfg, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry
}

const nodeSetsResponse = `{"data":{"nodeSets":{
  "totalCount": 2,
  "pageInfo": {"hasNextPage": true, "hasPreviousPage": false, "startCursor": "a", "endCursor": "b"},
  "edges": [
    {"cursor": "a", "node": {"identifier": 1234567890123, "modelUri": "http://opcfoundation.org/UA/DI/", "publicationDate": "2023-06-01T00:00:00Z", "version": "1.04",
      "metadata": {"title": "DI", "keywords": ["devices"], "approvalStatus": "approved", "additionalProperties": [{"name": "vendor", "value": "acme"}]}}},
    {"cursor": "b", "node": {"identifier": "77", "modelUri": "http://opcfoundation.org/UA/Robotics/", "publicationDate": "2022-01-01T00:00:00"}}
  ]
}}}`

func TestRegistryQueryNodesets_DecodesConnection(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: nodeSetsResponse}
	registry := newTestRegistry(t, fake, nil)

	first := 2
	page, err := registry.QueryNodesets(context.Background(), core.NodesetQuery{
		Keywords:         []string{"devices"},
		After:            "cursor-0",
		First:            &first,
		NoRequiredModels: true,
	})
	if err != nil {
		t.Fatalf("query nodesets: %v", err)
	}
	if page.TotalCount == nil || *page.TotalCount != 2 {
		t.Fatalf("expected total count 2, got %v", page.TotalCount)
	}
	if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor != "b" {
		t.Fatalf("unexpected page info: %#v", page.PageInfo)
	}
	if len(page.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(page.Edges))
	}

	firstNode := page.Edges[0].Node
	if firstNode.Identifier != "1234567890123" || firstNode.NamespaceURI != "http://opcfoundation.org/UA/DI/" {
		t.Fatalf("unexpected first node: %#v", firstNode)
	}
	if firstNode.Metadata == nil || firstNode.Metadata.ApprovalStatus != core.ApprovalStateApproved {
		t.Fatalf("expected decoded metadata, got %#v", firstNode.Metadata)
	}
	if firstNode.Metadata.Nodeset != nil {
		t.Fatalf("metadata must not point back at its record")
	}
	second := page.Edges[1].Node
	want := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	if second.Identifier != "77" || second.PublicationDate == nil || !second.PublicationDate.Equal(want) {
		t.Fatalf("unexpected second node: %#v", second)
	}

	call := fake.graphQLCalls[0]
	if call.OperationName != "NodeSets" {
		t.Fatalf("unexpected operation name %q", call.OperationName)
	}
	if strings.Contains(call.Query, "requiredModels") {
		t.Fatalf("expected requiredModels selection to be omitted:\n%s", call.Query)
	}
	if !strings.Contains(call.Query, "totalCount") || !strings.Contains(call.Query, "metadata {") {
		t.Fatalf("expected totalCount and metadata selections:\n%s", call.Query)
	}
	if call.Variables["after"] != "cursor-0" || call.Variables["first"] != float64(2) {
		t.Fatalf("unexpected variables: %#v", call.Variables)
	}
	if _, ok := call.Variables["before"]; ok {
		t.Fatalf("unset variables must not be sent: %#v", call.Variables)
	}
}

func TestRegistryQueryNodesets_GraphQLErrors(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: `{"errors":[{"message":"boom"}]}`}
	registry := newTestRegistry(t, fake, nil)

	_, err := registry.QueryNodesets(context.Background(), core.NodesetQuery{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.RegistryErrorTransportFailure {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestRegistryQueryPendingApproval_SendsProperty(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: `{"data":{"nodeSetsPendingApproval":{"pageInfo":{},"edges":[]}}}`}
	registry := newTestRegistry(t, fake, func(cfg *Config) { cfg.Token = "secret-token" })

	last := 3
	page, err := registry.QueryPendingApproval(context.Background(), core.NodesetQuery{
		Before:       "z",
		Last:         &last,
		NoTotalCount: true,
		Property:     &core.Property{Name: "vendor", Value: "acme"},
	})
	if err != nil {
		t.Fatalf("query pending approval: %v", err)
	}
	if len(page.Edges) != 0 || page.TotalCount != nil {
		t.Fatalf("unexpected page: %#v", page)
	}

	call := fake.graphQLCalls[0]
	if call.OperationName != "NodeSetsPendingApproval" {
		t.Fatalf("unexpected operation %q", call.OperationName)
	}
	if strings.Contains(call.Query, "totalCount") {
		t.Fatalf("expected totalCount to be omitted:\n%s", call.Query)
	}
	property, _ := call.Variables["additionalProperty"].(map[string]any)
	if property["name"] != "vendor" || property["value"] != "acme" {
		t.Fatalf("expected additional property variable, got %#v", call.Variables)
	}
	if fake.authHeaders[0] != "Bearer secret-token" {
		t.Fatalf("expected bearer credentials, got %q", fake.authHeaders[0])
	}
}

func TestRegistryUpdateApprovalStatus(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: `{"data":{"approveNodeSet":{"title":"DI","approvalStatus":"APPROVED","approvalInformation":"ok","nodeset":{"identifier":42,"modelUri":"http://opcfoundation.org/UA/DI/"}}}}`}
	registry := newTestRegistry(t, fake, func(cfg *Config) {
		cfg.Username = "admin"
		cfg.Password = "pw"
	})

	view, err := registry.UpdateApprovalStatus(context.Background(), core.ApprovalUpdate{
		Identifier: "42",
		State:      core.ApprovalStateApproved,
		StatusInfo: "ok",
	})
	if err != nil {
		t.Fatalf("update approval status: %v", err)
	}
	if view == nil || view.ApprovalStatus != core.ApprovalStateApproved || view.Nodeset == nil || view.Nodeset.Identifier != "42" {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.Nodeset.Metadata != nil {
		t.Fatalf("expected acyclic view")
	}

	call := fake.graphQLCalls[0]
	input, _ := call.Variables["input"].(map[string]any)
	if input["identifier"] != "42" || input["status"] != "APPROVED" || input["approvalInformation"] != "ok" {
		t.Fatalf("unexpected mutation input: %#v", input)
	}
	if !strings.HasPrefix(fake.authHeaders[0], "Basic ") {
		t.Fatalf("expected basic credentials, got %q", fake.authHeaders[0])
	}
}

func TestRegistryUpdateApprovalStatus_NullResult(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: `{"data":{"approveNodeSet":null}}`}
	registry := newTestRegistry(t, fake, nil)

	view, err := registry.UpdateApprovalStatus(context.Background(), core.ApprovalUpdate{Identifier: "1", State: core.ApprovalStateRejected})
	if err != nil {
		t.Fatalf("update approval status: %v", err)
	}
	if view != nil {
		t.Fatalf("expected absent view, got %#v", view)
	}
}

func TestRegistryDownloadNodeset(t *testing.T) {
	fake := &fakeCloudLib{downloadBody: `{"title":"DI","nodeset":{"identifier":12,"namespaceUri":"http://opcfoundation.org/UA/DI/","nodesetXml":"<UANodeSet/>","publicationDate":"2023-06-01"}}`}
	registry := newTestRegistry(t, fake, nil)

	view, err := registry.DownloadNodeset(context.Background(), "12")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if view == nil || view.Title != "DI" || view.Nodeset == nil {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.Nodeset.NodesetXML != "<UANodeSet/>" || view.Nodeset.NamespaceURI != "http://opcfoundation.org/UA/DI/" {
		t.Fatalf("unexpected nodeset: %#v", view.Nodeset)
	}
}

func TestRegistryDownloadNodeset_NotFound(t *testing.T) {
	fake := &fakeCloudLib{downloadStatus: http.StatusNotFound}
	registry := newTestRegistry(t, fake, nil)

	view, err := registry.DownloadNodeset(context.Background(), "404")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if view != nil {
		t.Fatalf("expected absent view")
	}
}

func TestRegistryDownloadNodeset_ServerError(t *testing.T) {
	fake := &fakeCloudLib{downloadStatus: http.StatusInternalServerError, downloadBody: "oops"}
	registry := newTestRegistry(t, fake, nil)

	_, err := registry.DownloadNodeset(context.Background(), "1")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.RegistryErrorTransportFailure {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestRegistryUploadNodeset(t *testing.T) {
	fake := &fakeCloudLib{uploadStatus: http.StatusConflict, uploadBody: `"Nodeset already exists"`}
	registry := newTestRegistry(t, fake, nil)

	published := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := registry.UploadNodeset(context.Background(), core.MetadataView{
		Title: "DI",
		Nodeset: &core.NodesetRecord{
			NamespaceURI:    "http://opcfoundation.org/UA/DI/",
			PublicationDate: &published,
			NodesetXML:      "<UANodeSet/>",
		},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.StatusCode != http.StatusConflict || result.Message != "Nodeset already exists" {
		t.Fatalf("unexpected result: %#v", result)
	}
	nodeset, _ := fake.uploads[0]["nodeset"].(map[string]any)
	if nodeset["nodesetXml"] != "<UANodeSet/>" || nodeset["publicationDate"] != "2023-06-01T00:00:00Z" {
		t.Fatalf("unexpected upload payload: %#v", fake.uploads[0])
	}
	if _, ok := nodeset["identifier"]; !ok {
		t.Fatalf("expected identifier member in payload")
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	if _, err := New(DefaultConfig()); err == nil {
		t.Fatalf("expected missing base_url to fail")
	}
	cfg := DefaultConfig()
	cfg.BaseURL = "https://uacloudlibrary.opcfoundation.org"
	cfg.Token = "t"
	cfg.Username = "u"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected token and username to be mutually exclusive")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(map[string]any{
		"base_url":        "https://uacloudlibrary.opcfoundation.org",
		"timeout_seconds": 5,
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GraphQLPath != "/graphql" || cfg.Timeout() != 5*time.Second {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

type deadlineDoer struct {
	next      transport.HTTPDoer
	mu        sync.Mutex
	remaining []time.Duration
}

func (d *deadlineDoer) Do(req *http.Request) (*http.Response, error) {
	remaining := time.Duration(-1)
	if deadline, ok := req.Context().Deadline(); ok {
		remaining = time.Until(deadline)
	}
	d.mu.Lock()
	d.remaining = append(d.remaining, remaining)
	d.mu.Unlock()
	return d.next.Do(req)
}

func TestRegistryAppliesTimeoutWithCustomClient(t *testing.T) {
	fake := &fakeCloudLib{graphQLResponse: nodeSetsResponse, downloadStatus: http.StatusNotFound}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.TimeoutSeconds = 7
	doer := &deadlineDoer{next: server.Client()}
	registry, err := New(cfg, WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if _, err := registry.QueryNodesets(context.Background(), core.NodesetQuery{NamespaceURI: "http://opcfoundation.org/UA/DI/"}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := registry.DownloadNodeset(context.Background(), "1"); err != nil {
		t.Fatalf("download: %v", err)
	}

	if len(doer.remaining) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(doer.remaining))
	}
	for i, remaining := range doer.remaining {
		if remaining <= 0 || remaining > 7*time.Second {
			t.Fatalf("request %d: expected a deadline within 7s, got %s", i, remaining)
		}
	}
}
