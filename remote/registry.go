package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-cloudlib/core"
	"github.com/goliatone/go-cloudlib/transport"
)

// Registry talks to a CloudLib instance: GraphQL for queries and approval,
// REST for download and upload.
type Registry struct {
	config  Config
	graphql *transport.GraphQLAdapter
	rest    *transport.RESTAdapter
	logger  glog.Logger
}

type Option func(*registryOptions)

type registryOptions struct {
	httpClient     transport.HTTPDoer
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
}

// WithHTTPClient replaces the underlying doer. Credentials and the request
// timeout from Config are still applied on top of it.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(o *registryOptions) {
		o.httpClient = client
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(o *registryOptions) {
		o.loggerProvider = provider
	}
}

func New(cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.RegistryErrorInvalidQueryShape)
	}
	options := registryOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	_, logger := glog.Resolve("cloudlib.remote", options.loggerProvider, options.logger)

	doer := options.httpClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout()}
	}
	if signer := signerFor(cfg); signer != nil {
		doer = transport.NewSigningClient(doer, signer)
	}

	rest := transport.NewRESTAdapter(doer)
	rest.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.MaxResponseBodyBytes > 0 {
		rest.MaxResponseBodyBytes = cfg.MaxResponseBodyBytes
	}

	return &Registry{
		config:  cfg,
		graphql: &transport.GraphQLAdapter{Endpoint: cfg.GraphQLPath, REST: rest},
		rest:    rest,
		logger:  glog.Ensure(logger),
	}, nil
}

func signerFor(cfg Config) transport.RequestSigner {
	if token := strings.TrimSpace(cfg.Token); token != "" {
		return transport.BearerTokenSigner{Token: token}
	}
	if username := strings.TrimSpace(cfg.Username); username != "" {
		return transport.BasicAuthSigner{Username: username, Password: cfg.Password}
	}
	return nil
}

func (r *Registry) QueryNodesets(ctx context.Context, query core.NodesetQuery) (core.ResultPage[core.NodesetRecord], error) {
	return r.queryConnection(ctx, fieldNodeSets, query)
}

func (r *Registry) QueryPendingApproval(
	ctx context.Context,
	query core.NodesetQuery,
) (core.ResultPage[core.NodesetRecord], error) {
	return r.queryConnection(ctx, fieldNodeSetsPendingApproval, query)
}

func (r *Registry) queryConnection(
	ctx context.Context,
	field string,
	query core.NodesetQuery,
) (core.ResultPage[core.NodesetRecord], error) {
	document, variables := nodesetsDocument(field, query)
	r.logger.Debug("registry graphql query", "field", field, "variables", variableNames(variables))

	data, err := r.graphQL(ctx, field, document, variables)
	if err != nil {
		return core.ResultPage[core.NodesetRecord]{}, err
	}
	var payload map[string]*wireConnection
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ResultPage[core.NodesetRecord]{}, decodeError(err, field)
	}
	connection := payload[field]
	if connection == nil {
		return core.ResultPage[core.NodesetRecord]{}, nil
	}
	return connection.toCore(), nil
}

func (r *Registry) UpdateApprovalStatus(ctx context.Context, update core.ApprovalUpdate) (*core.MetadataView, error) {
	document, variables := approvalDocument(update)
	data, err := r.graphQL(ctx, fieldApproveNodeSet, document, variables)
	if err != nil {
		return nil, err
	}
	var payload map[string]*wireMetadata
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, decodeError(err, fieldApproveNodeSet)
	}
	metadata := payload[fieldApproveNodeSet]
	if metadata == nil {
		return nil, nil
	}
	return metadata.toView(), nil
}

func (r *Registry) graphQL(ctx context.Context, field string, document string, variables map[string]any) ([]byte, error) {
	response, err := r.graphql.Do(ctx, core.TransportRequest{
		Timeout: r.config.Timeout(),
		Metadata: map[string]any{
			"query":          document,
			"operation_name": operationName(field),
			"variables":      variables,
		},
	})
	if err != nil {
		return nil, err
	}
	return response.Body, nil
}

// DownloadNodeset returns nil, nil when the registry answers 404.
func (r *Registry) DownloadNodeset(ctx context.Context, identifier string) (*core.MetadataView, error) {
	id := strings.TrimSpace(identifier)
	response, err := r.rest.Do(ctx, core.TransportRequest{
		Method:  http.MethodGet,
		URL:     strings.TrimRight(r.config.DownloadPath, "/") + "/" + url.PathEscape(id),
		Timeout: r.config.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, statusError(response, "download", map[string]any{"identifier": id})
	}

	var payload wireMetadata
	if err := json.Unmarshal(response.Body, &payload); err != nil {
		return nil, decodeError(err, "download")
	}
	return payload.toView(), nil
}

// UploadNodeset reports the registry status and message as-is. Only
// transport and encoding problems are returned as errors.
func (r *Registry) UploadNodeset(ctx context.Context, nodeset core.MetadataView) (core.UploadResult, error) {
	body, err := json.Marshal(uploadPayload(nodeset))
	if err != nil {
		return core.UploadResult{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "remote: encode upload payload").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.RegistryErrorInvalidQueryShape)
	}
	response, err := r.rest.Do(ctx, core.TransportRequest{
		Method:  http.MethodPut,
		URL:     r.config.UploadPath,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: r.config.Timeout(),
	})
	if err != nil {
		return core.UploadResult{}, err
	}
	return core.UploadResult{
		StatusCode: response.StatusCode,
		Message:    uploadMessage(response.Body),
	}, nil
}

func statusError(response core.TransportResponse, operation string, metadata map[string]any) error {
	fields := map[string]any{
		"operation":   operation,
		"status_code": response.StatusCode,
		"message":     uploadMessage(response.Body),
	}
	for key, value := range metadata {
		fields[key] = value
	}
	return goerrors.New(
		fmt.Sprintf("remote: %s returned status %d", operation, response.StatusCode),
		goerrors.CategoryExternal,
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.RegistryErrorTransportFailure).
		WithMetadata(fields)
}

func decodeError(err error, operation string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "remote: decode "+operation+" response").
		WithCode(http.StatusBadGateway).
		WithTextCode(core.RegistryErrorTransportFailure).
		WithMetadata(map[string]any{"operation": operation})
}

var _ core.RemoteRegistry = (*Registry)(nil)
