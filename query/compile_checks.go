package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudlib/core"
)

var (
	_ gocmd.Querier[SearchNodesetsMessage, core.ResultPage[core.NodesetRecord]]      = (*SearchNodesetsQuery)(nil)
	_ gocmd.Querier[ResolveNodesetMessage, *core.MetadataView]                       = (*ResolveNodesetQuery)(nil)
	_ gocmd.Querier[GetNodesetMessage, *core.MetadataView]                           = (*GetNodesetQuery)(nil)
	_ gocmd.Querier[GetNodesetsMessage, core.ResultPage[core.NodesetRecord]]         = (*GetNodesetsQuery)(nil)
	_ gocmd.Querier[DownloadNodesetMessage, *core.MetadataView]                      = (*DownloadNodesetQuery)(nil)
	_ gocmd.Querier[ListPendingApprovalMessage, core.ResultPage[core.NodesetRecord]] = (*ListPendingApprovalQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage]                          = (*ListActivityQuery)(nil)

	_ NodesetSearcher       = (*core.Client)(nil)
	_ NodesetResolver       = (*core.Client)(nil)
	_ NodesetGetter         = (*core.Client)(nil)
	_ NodesetDownloader     = (*core.Client)(nil)
	_ PendingApprovalLister = (*core.Client)(nil)
)
