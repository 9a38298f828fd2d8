package core

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// maxVersionPages bounds the version walk when a registry keeps reporting
// further pages.
const maxVersionPages = 64

// SelectVersion returns the candidate with the smallest publication date that
// is not older than requested. Undated candidates never qualify. Ties keep
// registry order.
func SelectVersion(candidates []NodesetRecord, requested time.Time) (NodesetRecord, bool) {
	floor := requested.UTC()
	dated := datedCandidates(candidates)
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].PublicationDate.Before(*dated[j].PublicationDate)
	})
	for _, candidate := range dated {
		if !candidate.PublicationDate.UTC().Before(floor) {
			return candidate, true
		}
	}
	return NodesetRecord{}, false
}

func datedCandidates(candidates []NodesetRecord) []NodesetRecord {
	out := make([]NodesetRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.PublicationDate == nil || strings.TrimSpace(candidate.Identifier) == "" {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// collectVersions walks every page of the namespace's version list. A walk
// still reporting further pages after maxVersionPages fails rather than
// resolving against a partial list.
func (c *Client) collectVersions(ctx context.Context, namespaceURI string) ([]NodesetRecord, error) {
	query := NodesetQuery{
		NamespaceURI:     namespaceURI,
		NoRequiredModels: true,
		NoMetadata:       true,
		NoTotalCount:     true,
	}
	records := []NodesetRecord{}
	seen := map[string]struct{}{}
	for pages := 1; ; pages++ {
		page, err := c.queryNodesets(ctx, query)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Nodes()...)

		next := strings.TrimSpace(page.PageInfo.EndCursor)
		if !page.PageInfo.HasNextPage || next == "" || len(page.Edges) == 0 {
			return records, nil
		}
		if _, repeated := seen[next]; repeated {
			return records, nil
		}
		if pages >= maxVersionPages {
			return nil, c.mapError(goerrors.New(
				fmt.Sprintf("version list for %s exceeds %d pages", namespaceURI, maxVersionPages),
				goerrors.CategoryExternal,
			).
				WithCode(http.StatusBadGateway).
				WithTextCode(RegistryErrorTransportFailure).
				WithMetadata(map[string]any{
					"namespace_uri": namespaceURI,
					"pages":         pages,
					"end_cursor":    next,
				}))
		}
		seen[next] = struct{}{}
		query.After = next
	}
}
