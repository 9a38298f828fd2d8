package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Client resolves, pages, uploads and approves nodesets against a
// RemoteRegistry. It holds only immutable configuration and is safe for
// concurrent use.
type Client struct {
	config           Config
	remote           RemoteRegistry
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorMapper      ErrorMapper
	activityRecorder ActivityRecorder
	now              func() time.Time
}

func NewClient(cfg Config, remote RemoteRegistry, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("cloudlib", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("cloudlib"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = time.Now
	}
	if remote == nil {
		return nil, mapBuildError(builder.errorMapper, ErrRemoteRequired)
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Client{
		config:           finalConfig,
		remote:           remote,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorMapper:      builder.errorMapper,
		activityRecorder: builder.activityRecorder,
		now:              builder.now,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

// ActivityRecorder returns the configured recorder, or nil.
func (c *Client) ActivityRecorder() ActivityRecorder {
	if c == nil {
		return nil
	}
	return c.activityRecorder
}

// Search pages through the registry. Forward traversal sends after/first,
// backward traversal sends before/last; never both.
func (c *Client) Search(ctx context.Context, req SearchRequest) (page ResultPage[NodesetRecord], err error) {
	startedAt := c.now()
	fields := map[string]any{
		"direction":        string(req.Direction),
		"keywords":         len(req.Keywords),
		"exclude_keywords": len(req.ExcludeKeywords),
	}
	defer func() {
		fields["edges"] = len(page.Edges)
		c.observeOperation(ctx, startedAt, "search", err, fields)
	}()
	if err = c.ready(); err != nil {
		return ResultPage[NodesetRecord]{}, err
	}

	query, err := pageQuery(c.limitOrDefault(req.Limit), req.Cursor, req.Direction)
	if err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}
	query.Keywords = cloneStrings(req.Keywords)
	query.NoTotalCount = req.SkipTotalCount
	query.NoRequiredModels = true
	query.NoMetadata = false

	page, err = c.queryNodesets(ctx, query)
	if err != nil {
		return ResultPage[NodesetRecord]{}, err
	}
	if !c.config.Search.SkipExcludeFilter {
		page = excludeKeywords(page, req.ExcludeKeywords)
	}
	return page, nil
}

// Resolve locates the version of namespaceURI published on publicationDate.
// Without an exact hit and with exactMatch false, it falls back to the
// closest version not older than publicationDate. A nil publicationDate
// queries by namespace alone and takes the first version the registry
// returns, with no fallback. Absent results return nil, nil.
func (c *Client) Resolve(
	ctx context.Context,
	namespaceURI string,
	publicationDate *time.Time,
	exactMatch bool,
) (view *MetadataView, err error) {
	startedAt := c.now()
	uri := strings.TrimSpace(namespaceURI)
	fields := map[string]any{
		"namespace_uri": uri,
		"exact_match":   exactMatch,
	}
	if publicationDate != nil {
		fields["publication_date"] = publicationDate.UTC().Format(time.RFC3339)
	}
	defer func() {
		fields["found"] = view != nil
		c.observeOperation(ctx, startedAt, "resolve", err, fields)
	}()
	if err = c.ready(); err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, c.mapError(fmt.Errorf("%w: namespace uri is required", ErrInvalidQueryShape))
	}

	identifier, err := c.resolveIdentifier(ctx, uri, publicationDate, exactMatch)
	if err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, nil
	}
	fields["identifier"] = identifier
	return c.download(ctx, identifier)
}

func (c *Client) resolveIdentifier(
	ctx context.Context,
	uri string,
	publicationDate *time.Time,
	exactMatch bool,
) (string, error) {
	exact, err := c.queryNodesets(ctx, NodesetQuery{
		NamespaceURI:     uri,
		PublicationDate:  cloneTime(publicationDate),
		NoRequiredModels: true,
		NoMetadata:       true,
	})
	if err != nil {
		return "", err
	}
	if first, ok := exact.First(); ok && strings.TrimSpace(first.Identifier) != "" {
		return strings.TrimSpace(first.Identifier), nil
	}
	if exactMatch || publicationDate == nil {
		return "", nil
	}

	candidates, err := c.collectVersions(ctx, uri)
	if err != nil {
		return "", err
	}
	if closest, ok := SelectVersion(candidates, *publicationDate); ok {
		return closest.Identifier, nil
	}
	return "", nil
}

// Download fetches the full record body by identifier.
func (c *Client) Download(ctx context.Context, identifier string) (view *MetadataView, err error) {
	startedAt := c.now()
	id := strings.TrimSpace(identifier)
	fields := map[string]any{"identifier": id}
	defer func() {
		fields["found"] = view != nil
		c.observeOperation(ctx, startedAt, "download", err, fields)
	}()
	if err = c.ready(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, c.mapError(fmt.Errorf("%w: identifier is required", ErrInvalidQueryShape))
	}
	return c.download(ctx, id)
}

func (c *Client) download(ctx context.Context, identifier string) (*MetadataView, error) {
	view, err := c.remote.DownloadNodeset(ctx, identifier)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, c.mapError(err)
	}
	return detachMetadataView(view), nil
}

// Get looks up a single identifier. The returned graph is a tree:
// MetadataView -> NodesetRecord, with the record's Metadata cleared.
func (c *Client) Get(ctx context.Context, identifier string) (view *MetadataView, err error) {
	startedAt := c.now()
	id := strings.TrimSpace(identifier)
	fields := map[string]any{"identifier": id}
	defer func() {
		fields["found"] = view != nil
		c.observeOperation(ctx, startedAt, "get", err, fields)
	}()
	if err = c.ready(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, c.mapError(fmt.Errorf("%w: identifier is required", ErrInvalidQueryShape))
	}

	page, err := c.queryNodesets(ctx, identifierQuery(id))
	if err != nil {
		return nil, err
	}
	record, ok := page.First()
	if !ok {
		return nil, nil
	}
	return metadataViewFromRecord(record), nil
}

// GetMany issues one lookup per identifier, one at a time, and unions the
// edges in input order. Duplicates are kept. PageInfo carries no paging
// meaning across the union. The first failure aborts the batch.
func (c *Client) GetMany(ctx context.Context, identifiers []string) (page ResultPage[NodesetRecord], err error) {
	startedAt := c.now()
	fields := map[string]any{"identifiers": len(identifiers)}
	defer func() {
		fields["edges"] = len(page.Edges)
		c.observeOperation(ctx, startedAt, "get_many", err, fields)
	}()
	if err = c.ready(); err != nil {
		return ResultPage[NodesetRecord]{}, err
	}

	ids := make([]string, 0, len(identifiers))
	for index, identifier := range identifiers {
		id := strings.TrimSpace(identifier)
		if id == "" {
			return ResultPage[NodesetRecord]{}, c.mapError(
				fmt.Errorf("%w: identifier at index %d is empty", ErrInvalidQueryShape, index),
			)
		}
		ids = append(ids, id)
	}

	edges := make([]Edge[NodesetRecord], 0, len(ids))
	for _, id := range ids {
		sub, subErr := c.queryNodesets(ctx, identifierQuery(id))
		if subErr != nil {
			fields["failed_identifier"] = id
			return ResultPage[NodesetRecord]{}, subErr
		}
		edges = append(edges, sub.Edges...)
	}
	total := len(edges)
	return ResultPage[NodesetRecord]{Edges: edges, TotalCount: &total}, nil
}

// Upload submits a nodeset. A non-OK registry status becomes *UploadFailure
// carrying the registry message verbatim; on success the message is returned.
func (c *Client) Upload(ctx context.Context, nodeset *MetadataView) (message string, err error) {
	startedAt := c.now()
	fields := map[string]any{}
	namespaceURI := ""
	if nodeset != nil && nodeset.Nodeset != nil {
		namespaceURI = strings.TrimSpace(nodeset.Nodeset.NamespaceURI)
		fields["namespace_uri"] = namespaceURI
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "upload", err, fields)
	}()
	if err = c.ready(); err != nil {
		return "", err
	}
	if nodeset == nil {
		return "", c.mapError(fmt.Errorf("%w: nodeset payload is required", ErrInvalidQueryShape))
	}

	result, err := c.remote.UploadNodeset(ctx, *detachMetadataView(nodeset))
	if err != nil {
		err = c.mapError(err)
		c.recordActivity(ctx, ActivityEntry{
			Action:       ActivityActionUpload,
			NamespaceURI: namespaceURI,
			Status:       ActivityStatusFailed,
			Message:      err.Error(),
		})
		return "", err
	}
	fields["status_code"] = result.StatusCode
	if result.StatusCode != http.StatusOK {
		c.recordActivity(ctx, ActivityEntry{
			Action:       ActivityActionUpload,
			NamespaceURI: namespaceURI,
			Status:       ActivityStatusFailed,
			Message:      result.Message,
			Metadata:     map[string]any{"status_code": result.StatusCode},
		})
		return "", &UploadFailure{StatusCode: result.StatusCode, Message: result.Message}
	}
	c.recordActivity(ctx, ActivityEntry{
		Action:       ActivityActionUpload,
		NamespaceURI: namespaceURI,
		Status:       ActivityStatusOK,
		Message:      result.Message,
		Metadata:     map[string]any{"status_code": result.StatusCode},
	})
	return result.Message, nil
}

// ListPendingApproval pages through records awaiting approval with the same
// cursor contract as Search.
func (c *Client) ListPendingApproval(
	ctx context.Context,
	req PendingApprovalRequest,
) (page ResultPage[NodesetRecord], err error) {
	startedAt := c.now()
	fields := map[string]any{
		"direction":    string(req.Direction),
		"has_property": req.Property != nil,
	}
	defer func() {
		fields["edges"] = len(page.Edges)
		c.observeOperation(ctx, startedAt, "list_pending_approval", err, fields)
	}()
	if err = c.ready(); err != nil {
		return ResultPage[NodesetRecord]{}, err
	}

	query, err := pageQuery(c.limitOrDefault(req.Limit), req.Cursor, req.Direction)
	if err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}
	query.NoTotalCount = req.SkipTotalCount
	query.NoRequiredModels = true
	query.NoMetadata = false
	query.Property = cloneProperty(req.Property)
	if err := query.Validate(); err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}

	page, err = c.remote.QueryPendingApproval(ctx, query)
	if err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}
	return sanitizePage(page), nil
}

// SetApprovalStatus forwards a status transition. Legality of the transition
// is left to the registry. An unknown identifier returns nil, nil.
func (c *Client) SetApprovalStatus(ctx context.Context, update ApprovalUpdate) (view *MetadataView, err error) {
	startedAt := c.now()
	update.Identifier = strings.TrimSpace(update.Identifier)
	update.State = NormalizeApprovalState(update.State)
	update.Property = cloneProperty(update.Property)
	fields := map[string]any{
		"identifier":     update.Identifier,
		"approval_state": string(update.State),
	}
	defer func() {
		fields["found"] = view != nil
		c.observeOperation(ctx, startedAt, "set_approval_status", err, fields)
	}()
	if err = c.ready(); err != nil {
		return nil, err
	}
	if err = update.Validate(); err != nil {
		return nil, c.mapError(err)
	}

	entry := ActivityEntry{
		Action:     ActivityActionApprovalStatus,
		Identifier: update.Identifier,
		State:      update.State,
		Message:    update.StatusInfo,
	}
	updated, err := c.remote.UpdateApprovalStatus(ctx, update)
	if err != nil {
		if IsNotFound(err) {
			entry.Status = ActivityStatusFailed
			entry.Metadata = map[string]any{"reason": "not_found"}
			c.recordActivity(ctx, entry)
			return nil, nil
		}
		err = c.mapError(err)
		entry.Status = ActivityStatusFailed
		entry.Metadata = map[string]any{"error": err.Error()}
		c.recordActivity(ctx, entry)
		return nil, err
	}
	if updated == nil {
		entry.Status = ActivityStatusFailed
		entry.Metadata = map[string]any{"reason": "not_found"}
		c.recordActivity(ctx, entry)
		return nil, nil
	}

	view = detachMetadataView(updated)
	entry.Status = ActivityStatusOK
	if view.Nodeset != nil {
		entry.NamespaceURI = view.Nodeset.NamespaceURI
	}
	c.recordActivity(ctx, entry)
	return view, nil
}

func (c *Client) queryNodesets(ctx context.Context, query NodesetQuery) (ResultPage[NodesetRecord], error) {
	if err := query.Validate(); err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}
	page, err := c.remote.QueryNodesets(ctx, query)
	if err != nil {
		return ResultPage[NodesetRecord]{}, c.mapError(err)
	}
	return sanitizePage(page), nil
}

func (c *Client) ready() error {
	if c == nil || c.remote == nil {
		return mapBuildError(defaultErrorMapper, ErrRemoteRequired)
	}
	return nil
}

func (c *Client) limitOrDefault(limit *int) *int {
	if limit != nil {
		return limit
	}
	if c.config.Search.DefaultLimit > 0 {
		value := c.config.Search.DefaultLimit
		return &value
	}
	return nil
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c == nil || c.errorMapper == nil {
		return err
	}
	mapped := c.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) recordActivity(ctx context.Context, entry ActivityEntry) {
	if c == nil || c.activityRecorder == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC()
	}
	if err := c.activityRecorder.Record(ctx, entry); err != nil {
		c.logWarn(ctx, "activity record failed", map[string]any{
			"action":     entry.Action,
			"identifier": entry.Identifier,
			"error":      err.Error(),
		})
	}
}

func identifierQuery(identifier string) NodesetQuery {
	return NodesetQuery{
		Identifier:       identifier,
		NoRequiredModels: true,
		NoTotalCount:     true,
	}
}
