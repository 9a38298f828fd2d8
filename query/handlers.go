package query

import (
	"context"
	"time"

	"github.com/goliatone/go-cloudlib/core"
)

type NodesetSearcher interface {
	Search(ctx context.Context, req core.SearchRequest) (core.ResultPage[core.NodesetRecord], error)
}

type NodesetResolver interface {
	Resolve(ctx context.Context, namespaceURI string, publicationDate *time.Time, exactMatch bool) (*core.MetadataView, error)
}

type NodesetGetter interface {
	Get(ctx context.Context, identifier string) (*core.MetadataView, error)
	GetMany(ctx context.Context, identifiers []string) (core.ResultPage[core.NodesetRecord], error)
}

type NodesetDownloader interface {
	Download(ctx context.Context, identifier string) (*core.MetadataView, error)
}

type PendingApprovalLister interface {
	ListPendingApproval(ctx context.Context, req core.PendingApprovalRequest) (core.ResultPage[core.NodesetRecord], error)
}

type SearchNodesetsQuery struct {
	searcher NodesetSearcher
}

func NewSearchNodesetsQuery(searcher NodesetSearcher) *SearchNodesetsQuery {
	return &SearchNodesetsQuery{searcher: searcher}
}

func (q *SearchNodesetsQuery) Query(
	ctx context.Context,
	msg SearchNodesetsMessage,
) (core.ResultPage[core.NodesetRecord], error) {
	if q == nil || q.searcher == nil {
		return core.ResultPage[core.NodesetRecord]{}, queryDependencyError("query: nodeset searcher is required")
	}
	return q.searcher.Search(ctx, msg.Request)
}

type ResolveNodesetQuery struct {
	resolver NodesetResolver
}

func NewResolveNodesetQuery(resolver NodesetResolver) *ResolveNodesetQuery {
	return &ResolveNodesetQuery{resolver: resolver}
}

// Query returns nil when no version matches.
func (q *ResolveNodesetQuery) Query(ctx context.Context, msg ResolveNodesetMessage) (*core.MetadataView, error) {
	if q == nil || q.resolver == nil {
		return nil, queryDependencyError("query: nodeset resolver is required")
	}
	return q.resolver.Resolve(ctx, msg.NamespaceURI, msg.PublicationDate, msg.ExactMatch)
}

type GetNodesetQuery struct {
	getter NodesetGetter
}

func NewGetNodesetQuery(getter NodesetGetter) *GetNodesetQuery {
	return &GetNodesetQuery{getter: getter}
}

func (q *GetNodesetQuery) Query(ctx context.Context, msg GetNodesetMessage) (*core.MetadataView, error) {
	if q == nil || q.getter == nil {
		return nil, queryDependencyError("query: nodeset getter is required")
	}
	return q.getter.Get(ctx, msg.Identifier)
}

type GetNodesetsQuery struct {
	getter NodesetGetter
}

func NewGetNodesetsQuery(getter NodesetGetter) *GetNodesetsQuery {
	return &GetNodesetsQuery{getter: getter}
}

func (q *GetNodesetsQuery) Query(
	ctx context.Context,
	msg GetNodesetsMessage,
) (core.ResultPage[core.NodesetRecord], error) {
	if q == nil || q.getter == nil {
		return core.ResultPage[core.NodesetRecord]{}, queryDependencyError("query: nodeset getter is required")
	}
	return q.getter.GetMany(ctx, msg.Identifiers)
}

type DownloadNodesetQuery struct {
	downloader NodesetDownloader
}

func NewDownloadNodesetQuery(downloader NodesetDownloader) *DownloadNodesetQuery {
	return &DownloadNodesetQuery{downloader: downloader}
}

func (q *DownloadNodesetQuery) Query(ctx context.Context, msg DownloadNodesetMessage) (*core.MetadataView, error) {
	if q == nil || q.downloader == nil {
		return nil, queryDependencyError("query: nodeset downloader is required")
	}
	return q.downloader.Download(ctx, msg.Identifier)
}

type ListPendingApprovalQuery struct {
	lister PendingApprovalLister
}

func NewListPendingApprovalQuery(lister PendingApprovalLister) *ListPendingApprovalQuery {
	return &ListPendingApprovalQuery{lister: lister}
}

func (q *ListPendingApprovalQuery) Query(
	ctx context.Context,
	msg ListPendingApprovalMessage,
) (core.ResultPage[core.NodesetRecord], error) {
	if q == nil || q.lister == nil {
		return core.ResultPage[core.NodesetRecord]{}, queryDependencyError("query: pending approval lister is required")
	}
	return q.lister.ListPendingApproval(ctx, msg.Request)
}

type ListActivityQuery struct {
	reader core.ActivityReader
}

func NewListActivityQuery(reader core.ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
