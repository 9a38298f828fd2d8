package cloudlib_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cloudlib "github.com/goliatone/go-cloudlib"
	cloudcommand "github.com/goliatone/go-cloudlib/command"
	"github.com/goliatone/go-cloudlib/core"
	cloudquery "github.com/goliatone/go-cloudlib/query"
	"github.com/goliatone/go-cloudlib/remote"
)

type cloudLibServer struct {
	mu         sync.Mutex
	operations []string
	downloads  []string
}

func (s *cloudLibServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			t.Errorf("expected basic auth credentials, got %q/%q", user, pass)
		}
		var call struct {
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("decode graphql call: %v", err)
		}
		s.mu.Lock()
		s.operations = append(s.operations, call.OperationName)
		s.mu.Unlock()

		if _, exact := call.Variables["publicationDate"]; exact {
			_, _ = io.WriteString(w, `{"data":{"nodeSets":{"pageInfo":{},"edges":[]}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"nodeSets":{
			"pageInfo": {"hasNextPage": false, "endCursor": "c3"},
			"edges": [
				{"cursor": "c1", "node": {"identifier": 100, "modelUri": "http://opcfoundation.org/UA/DI/", "publicationDate": "2019-05-01T00:00:00Z"}},
				{"cursor": "c2", "node": {"identifier": 200, "modelUri": "http://opcfoundation.org/UA/DI/", "publicationDate": "2021-03-09T00:00:00Z"}},
				{"cursor": "c3", "node": {"identifier": 300, "modelUri": "http://opcfoundation.org/UA/DI/", "publicationDate": "2023-01-01T00:00:00Z"}}
			]
		}}}`)
	})
	mux.HandleFunc("/infomodel/download/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/infomodel/download/")
		s.mu.Lock()
		s.downloads = append(s.downloads, id)
		s.mu.Unlock()
		_, _ = io.WriteString(w, `{"title": "DI", "nodeset": {"identifier": `+id+`, "namespaceUri": "http://opcfoundation.org/UA/DI/", "nodesetXml": "<UANodeSet/>"}}`)
	})
	mux.HandleFunc("/infomodel/upload", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message": "nodeset already exists"}`)
	})
	return mux
}

func TestComposition_ResolveFallbackAndUploadFailureThroughFacade(t *testing.T) {
	fake := &cloudLibServer{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	remoteCfg, err := remote.LoadConfig(map[string]any{
		"base_url": server.URL,
		"username": "admin",
		"password": "secret",
	})
	if err != nil {
		t.Fatalf("load remote config: %v", err)
	}
	client, err := cloudlib.Setup(cloudlib.DefaultConfig(), remoteCfg, []remote.Option{
		remote.WithHTTPClient(server.Client()),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	facade, err := cloudlib.NewFacade(client)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	requested := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	view, err := facade.Queries().ResolveNodeset.Query(context.Background(), cloudquery.ResolveNodesetMessage{
		NamespaceURI:    "http://opcfoundation.org/UA/DI/",
		PublicationDate: &requested,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view == nil || view.Nodeset == nil {
		t.Fatalf("expected resolved nodeset, got %#v", view)
	}
	if view.Nodeset.Identifier != "200" || view.Nodeset.NodesetXML != "<UANodeSet/>" {
		t.Fatalf("expected closest newer version 200, got %#v", view.Nodeset)
	}
	if view.Nodeset.Metadata != nil {
		t.Fatalf("expected resolved graph without back-reference")
	}
	if len(fake.downloads) != 1 || fake.downloads[0] != "200" {
		t.Fatalf("unexpected downloads: %v", fake.downloads)
	}

	err = facade.Commands().UploadNodeset.Execute(context.Background(), cloudcommand.UploadNodesetMessage{
		Nodeset: &core.MetadataView{Title: "DI"},
	})
	var failure *cloudlib.UploadFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if failure.StatusCode != http.StatusConflict || failure.Message != "nodeset already exists" {
		t.Fatalf("unexpected upload failure: %#v", failure)
	}
}
