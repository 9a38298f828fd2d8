package core

import (
	"strings"
	"unicode"
)

// metadataViewFromRecord returns a detached MetadataView -> NodesetRecord
// tree for record. The owning record carries no Metadata back reference.
func metadataViewFromRecord(record NodesetRecord) *MetadataView {
	view := MetadataView{}
	if record.Metadata != nil {
		view = cloneMetadataView(*record.Metadata)
	}
	owner := cloneRecord(record)
	view.Nodeset = &owner
	return &view
}

func detachMetadataView(view *MetadataView) *MetadataView {
	if view == nil {
		return nil
	}
	out := cloneMetadataView(*view)
	if view.Nodeset != nil {
		owner := cloneRecord(*view.Nodeset)
		out.Nodeset = &owner
	}
	return &out
}

// cloneRecord copies record and drops its Metadata back reference.
func cloneRecord(record NodesetRecord) NodesetRecord {
	out := record
	out.PublicationDate = cloneTime(record.PublicationDate)
	out.LastModified = cloneTime(record.LastModified)
	if len(record.RequiredModels) > 0 {
		out.RequiredModels = make([]RequiredModel, len(record.RequiredModels))
		for i, model := range record.RequiredModels {
			model.PublicationDate = cloneTime(model.PublicationDate)
			out.RequiredModels[i] = model
		}
	}
	out.Metadata = nil
	return out
}

// cloneMetadataView copies view without its Nodeset.
func cloneMetadataView(view MetadataView) MetadataView {
	out := view
	out.Keywords = append([]string(nil), view.Keywords...)
	out.SupportedLocales = append([]string(nil), view.SupportedLocales...)
	out.AdditionalProperties = append([]Property(nil), view.AdditionalProperties...)
	out.Nodeset = nil
	return out
}

// sanitizePage keeps records pointing at their metadata while clearing the
// metadata's pointer back to a record.
func sanitizePage(page ResultPage[NodesetRecord]) ResultPage[NodesetRecord] {
	out := ResultPage[NodesetRecord]{
		PageInfo:   page.PageInfo,
		TotalCount: cloneInt(page.TotalCount),
	}
	if len(page.Edges) == 0 {
		return out
	}
	out.Edges = make([]Edge[NodesetRecord], 0, len(page.Edges))
	for _, edge := range page.Edges {
		record := cloneRecord(edge.Node)
		if edge.Node.Metadata != nil {
			metadata := cloneMetadataView(*edge.Node.Metadata)
			record.Metadata = &metadata
		}
		out.Edges = append(out.Edges, Edge[NodesetRecord]{Node: record, Cursor: edge.Cursor})
	}
	return out
}

// excludeKeywords drops edges whose metadata keywords, or whole words of
// whose title, equal an excluded term. Matching ignores case. Namespace URIs
// are not matched. PageInfo and TotalCount describe the unfiltered registry
// page.
func excludeKeywords(page ResultPage[NodesetRecord], excluded []string) ResultPage[NodesetRecord] {
	terms := make([]string, 0, len(excluded))
	for _, term := range cloneStrings(excluded) {
		terms = append(terms, strings.ToLower(term))
	}
	if len(terms) == 0 || len(page.Edges) == 0 {
		return page
	}
	kept := make([]Edge[NodesetRecord], 0, len(page.Edges))
	for _, edge := range page.Edges {
		if matchesExcluded(edge.Node, terms) {
			continue
		}
		kept = append(kept, edge)
	}
	page.Edges = kept
	return page
}

func matchesExcluded(record NodesetRecord, terms []string) bool {
	if record.Metadata == nil {
		return false
	}
	titleWords := strings.FieldsFunc(record.Metadata.Title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, term := range terms {
		for _, keyword := range record.Metadata.Keywords {
			if strings.EqualFold(strings.TrimSpace(keyword), term) {
				return true
			}
		}
		for _, word := range titleWords {
			if strings.EqualFold(word, term) {
				return true
			}
		}
	}
	return false
}
