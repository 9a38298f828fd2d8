package query

import (
	"strings"
	"time"

	"github.com/goliatone/go-cloudlib/core"
)

const (
	TypeSearchNodesets      = "cloudlib.query.nodesets.search"
	TypeResolveNodeset      = "cloudlib.query.nodesets.resolve"
	TypeGetNodeset          = "cloudlib.query.nodesets.get"
	TypeGetNodesets         = "cloudlib.query.nodesets.get_many"
	TypeDownloadNodeset     = "cloudlib.query.nodesets.download"
	TypeListPendingApproval = "cloudlib.query.nodesets.pending_approval.list"
	TypeListActivity        = "cloudlib.query.activity.list"
)

type SearchNodesetsMessage struct {
	Request core.SearchRequest
}

func (SearchNodesetsMessage) Type() string { return TypeSearchNodesets }

func (m SearchNodesetsMessage) Validate() error {
	return validatePaging(m.Request.Limit, m.Request.Direction)
}

type ResolveNodesetMessage struct {
	NamespaceURI    string
	PublicationDate *time.Time
	ExactMatch      bool
}

func (ResolveNodesetMessage) Type() string { return TypeResolveNodeset }

func (m ResolveNodesetMessage) Validate() error {
	if strings.TrimSpace(m.NamespaceURI) == "" {
		return queryValidationError("namespace_uri", "namespace uri is required")
	}
	return nil
}

type GetNodesetMessage struct {
	Identifier string
}

func (GetNodesetMessage) Type() string { return TypeGetNodeset }

func (m GetNodesetMessage) Validate() error {
	if strings.TrimSpace(m.Identifier) == "" {
		return queryValidationError("identifier", "identifier is required")
	}
	return nil
}

type GetNodesetsMessage struct {
	Identifiers []string
}

func (GetNodesetsMessage) Type() string { return TypeGetNodesets }

func (m GetNodesetsMessage) Validate() error {
	for _, identifier := range m.Identifiers {
		if strings.TrimSpace(identifier) == "" {
			return queryValidationError("identifiers", "identifiers must not contain empty values")
		}
	}
	return nil
}

type DownloadNodesetMessage struct {
	Identifier string
}

func (DownloadNodesetMessage) Type() string { return TypeDownloadNodeset }

func (m DownloadNodesetMessage) Validate() error {
	if strings.TrimSpace(m.Identifier) == "" {
		return queryValidationError("identifier", "identifier is required")
	}
	return nil
}

type ListPendingApprovalMessage struct {
	Request core.PendingApprovalRequest
}

func (ListPendingApprovalMessage) Type() string { return TypeListPendingApproval }

func (m ListPendingApprovalMessage) Validate() error {
	if err := validatePaging(m.Request.Limit, m.Request.Direction); err != nil {
		return err
	}
	if m.Request.Property != nil && strings.TrimSpace(m.Request.Property.Name) == "" {
		return queryValidationError("property.name", "property name is required when filtering by property")
	}
	return nil
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryValidationError("to", "to must not be before from")
	}
	return nil
}

func validatePaging(limit *int, direction core.Direction) error {
	if limit != nil && *limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	switch core.Direction(strings.ToLower(strings.TrimSpace(string(direction)))) {
	case "", core.DirectionForward, core.DirectionBackward:
		return nil
	default:
		return queryValidationError("direction", "direction must be forward or backward")
	}
}
