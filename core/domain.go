package core

import (
	"fmt"
	"strings"
	"time"
)

type ApprovalState string

const (
	ApprovalStatePending  ApprovalState = "PENDING"
	ApprovalStateApproved ApprovalState = "APPROVED"
	ApprovalStateRejected ApprovalState = "REJECTED"
	ApprovalStateCanceled ApprovalState = "CANCELED"
)

// NormalizeApprovalState upper-cases known states and keeps provider-defined
// values as given (trimmed).
func NormalizeApprovalState(state ApprovalState) ApprovalState {
	trimmed := strings.TrimSpace(string(state))
	upper := ApprovalState(strings.ToUpper(trimmed))
	switch upper {
	case ApprovalStatePending, ApprovalStateApproved, ApprovalStateRejected, ApprovalStateCanceled:
		return upper
	default:
		return ApprovalState(trimmed)
	}
}

type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Organisation struct {
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Website      string `json:"website,omitempty"`
}

type Category struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
}

type RequiredModel struct {
	NamespaceURI    string     `json:"namespaceUri"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`
	Version         string     `json:"version,omitempty"`
}

// NodesetRecord is one versioned namespace entry in the remote registry.
// Metadata is a transport-populated back reference; values handed to callers
// by Client never carry both directions at once.
type NodesetRecord struct {
	Identifier       string          `json:"identifier"`
	NamespaceURI     string          `json:"namespaceUri"`
	PublicationDate  *time.Time      `json:"publicationDate,omitempty"`
	Version          string          `json:"version,omitempty"`
	LastModified     *time.Time      `json:"lastModifiedDate,omitempty"`
	ValidationStatus string          `json:"validationStatus,omitempty"`
	RequiredModels   []RequiredModel `json:"requiredModels,omitempty"`
	NodesetXML       string          `json:"nodesetXml,omitempty"`
	Metadata         *MetadataView   `json:"metadata,omitempty"`
}

// MetadataView is the descriptive payload returned to callers.
type MetadataView struct {
	Title                    string         `json:"title,omitempty"`
	Description              string         `json:"description,omitempty"`
	License                  string         `json:"license,omitempty"`
	CopyrightText            string         `json:"copyrightText,omitempty"`
	Contributor              Organisation   `json:"contributor"`
	Category                 Category       `json:"category"`
	Keywords                 []string       `json:"keywords,omitempty"`
	DocumentationURL         string         `json:"documentationUrl,omitempty"`
	IconURL                  string         `json:"iconUrl,omitempty"`
	LicenseURL               string         `json:"licenseUrl,omitempty"`
	PurchasingInformationURL string         `json:"purchasingInformationUrl,omitempty"`
	ReleaseNotesURL          string         `json:"releaseNotesUrl,omitempty"`
	TestSpecificationURL     string         `json:"testSpecificationUrl,omitempty"`
	SupportedLocales         []string       `json:"supportedLocales,omitempty"`
	NumberOfDownloads        int64          `json:"numberOfDownloads,omitempty"`
	ApprovalStatus           ApprovalState  `json:"approvalStatus,omitempty"`
	ApprovalInformation      string         `json:"approvalInformation,omitempty"`
	AdditionalProperties     []Property     `json:"additionalProperties,omitempty"`
	Nodeset                  *NodesetRecord `json:"nodeset,omitempty"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}

type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

// ResultPage keeps edges in registry order. TotalCount is nil when the
// caller asked to skip counting.
type ResultPage[T any] struct {
	Edges      []Edge[T] `json:"edges"`
	PageInfo   PageInfo  `json:"pageInfo"`
	TotalCount *int      `json:"totalCount,omitempty"`
}

func (p ResultPage[T]) Nodes() []T {
	nodes := make([]T, 0, len(p.Edges))
	for _, edge := range p.Edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes
}

func (p ResultPage[T]) First() (T, bool) {
	if len(p.Edges) == 0 {
		var zero T
		return zero, false
	}
	return p.Edges[0].Node, true
}

type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

func (d Direction) normalize() (Direction, error) {
	switch Direction(strings.TrimSpace(strings.ToLower(string(d)))) {
	case "", DirectionForward:
		return DirectionForward, nil
	case DirectionBackward:
		return DirectionBackward, nil
	default:
		return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidQueryShape, d)
	}
}

type SearchRequest struct {
	Limit           *int
	Cursor          string
	Direction       Direction
	Keywords        []string
	ExcludeKeywords []string
	SkipTotalCount  bool
}

type PendingApprovalRequest struct {
	Limit          *int
	Cursor         string
	Direction      Direction
	SkipTotalCount bool
	Property       *Property
}

type ApprovalUpdate struct {
	Identifier string
	State      ApprovalState
	StatusInfo string
	Property   *Property
}

func (u ApprovalUpdate) Validate() error {
	if strings.TrimSpace(u.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidQueryShape)
	}
	if strings.TrimSpace(string(u.State)) == "" {
		return fmt.Errorf("%w: approval state is required", ErrInvalidQueryShape)
	}
	return nil
}

type UploadResult struct {
	StatusCode int
	Message    string
}

// NodesetQuery is the query shape sent to the remote registry. Forward
// (After/First) and backward (Before/Last) traversal are mutually exclusive.
type NodesetQuery struct {
	Identifier       string
	NamespaceURI     string
	PublicationDate  *time.Time
	Keywords         []string
	After            string
	First            *int
	Before           string
	Last             *int
	NoTotalCount     bool
	NoRequiredModels bool
	NoMetadata       bool
	Property         *Property
}

func (q NodesetQuery) Forward() bool {
	return q.After != "" || q.First != nil
}

func (q NodesetQuery) Backward() bool {
	return q.Before != "" || q.Last != nil
}

func (q NodesetQuery) Validate() error {
	if q.Forward() && q.Backward() {
		return fmt.Errorf("%w: after/first and before/last are mutually exclusive", ErrInvalidQueryShape)
	}
	if q.First != nil && *q.First < 0 {
		return fmt.Errorf("%w: first must be >= 0", ErrInvalidQueryShape)
	}
	if q.Last != nil && *q.Last < 0 {
		return fmt.Errorf("%w: last must be >= 0", ErrInvalidQueryShape)
	}
	return nil
}

func pageQuery(limit *int, cursor string, direction Direction) (NodesetQuery, error) {
	dir, err := direction.normalize()
	if err != nil {
		return NodesetQuery{}, err
	}
	if limit != nil && *limit < 0 {
		return NodesetQuery{}, fmt.Errorf("%w: limit must be >= 0", ErrInvalidQueryShape)
	}
	query := NodesetQuery{}
	if dir == DirectionBackward {
		query.Before = cursor
		query.Last = cloneInt(limit)
	} else {
		query.After = cursor
		query.First = cloneInt(limit)
	}
	return query, nil
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := value.UTC()
	return &copied
}

func cloneProperty(value *Property) *Property {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
