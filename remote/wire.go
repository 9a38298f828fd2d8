package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-cloudlib/core"
)

// flexID accepts identifiers encoded as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("remote: identifier must be a number or string: %w", err)
	}
	*id = flexID(number.String())
	return nil
}

func (id flexID) MarshalJSON() ([]byte, error) {
	value := strings.TrimSpace(string(id))
	if value == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseUint(value, 10, 64); err == nil {
		return []byte(value), nil
	}
	return json.Marshal(value)
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// flexTime accepts RFC 3339 timestamps with or without zone, and bare dates.
// Zone-less values are read as UTC.
type flexTime struct {
	time.Time
	valid bool
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("remote: timestamp must be a string: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		*t = flexTime{}
		return nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range wireTimeLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			*t = flexTime{Time: parsed.UTC(), valid: true}
			return nil
		}
	}
	return fmt.Errorf("remote: unsupported timestamp %q", value)
}

func (t flexTime) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

func (t flexTime) ptr() *time.Time {
	if !t.valid {
		return nil
	}
	value := t.Time
	return &value
}

func newFlexTime(value *time.Time) flexTime {
	if value == nil {
		return flexTime{}
	}
	return flexTime{Time: value.UTC(), valid: true}
}

type wireProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireOrganisation struct {
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Website      string `json:"website,omitempty"`
}

type wireCategory struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
}

type wireRequiredModel struct {
	ModelURI        string   `json:"modelUri"`
	PublicationDate flexTime `json:"publicationDate"`
	Version         string   `json:"version,omitempty"`
}

// wireNodeset is the registry's node shape. GraphQL responses use modelUri,
// REST download bodies use namespaceUri; both are accepted.
type wireNodeset struct {
	Identifier       flexID              `json:"identifier"`
	ModelURI         string              `json:"modelUri,omitempty"`
	NamespaceURI     string              `json:"namespaceUri,omitempty"`
	PublicationDate  flexTime            `json:"publicationDate"`
	Version          string              `json:"version,omitempty"`
	LastModified     flexTime            `json:"lastModifiedDate"`
	ValidationStatus string              `json:"validationStatus,omitempty"`
	RequiredModels   []wireRequiredModel `json:"requiredModels,omitempty"`
	NodesetXML       string              `json:"nodesetXml,omitempty"`
	Metadata         *wireMetadata       `json:"metadata,omitempty"`
}

type wireMetadata struct {
	Title                    string           `json:"title,omitempty"`
	Description              string           `json:"description,omitempty"`
	License                  string           `json:"license,omitempty"`
	CopyrightText            string           `json:"copyrightText,omitempty"`
	Contributor              wireOrganisation `json:"contributor"`
	Category                 wireCategory     `json:"category"`
	Keywords                 []string         `json:"keywords,omitempty"`
	DocumentationURL         string           `json:"documentationUrl,omitempty"`
	IconURL                  string           `json:"iconUrl,omitempty"`
	LicenseURL               string           `json:"licenseUrl,omitempty"`
	PurchasingInformationURL string           `json:"purchasingInformationUrl,omitempty"`
	ReleaseNotesURL          string           `json:"releaseNotesUrl,omitempty"`
	TestSpecificationURL     string           `json:"testSpecificationUrl,omitempty"`
	SupportedLocales         []string         `json:"supportedLocales,omitempty"`
	NumberOfDownloads        int64            `json:"numberOfDownloads,omitempty"`
	ApprovalStatus           string           `json:"approvalStatus,omitempty"`
	ApprovalInformation      string           `json:"approvalInformation,omitempty"`
	AdditionalProperties     []wireProperty   `json:"additionalProperties,omitempty"`
	Nodeset                  *wireNodeset     `json:"nodeset,omitempty"`
}

type wirePageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
}

type wireEdge struct {
	Cursor string      `json:"cursor"`
	Node   wireNodeset `json:"node"`
}

type wireConnection struct {
	TotalCount *int         `json:"totalCount"`
	PageInfo   wirePageInfo `json:"pageInfo"`
	Edges      []wireEdge   `json:"edges"`
}

func (n wireNodeset) toCore() core.NodesetRecord {
	namespace := strings.TrimSpace(n.NamespaceURI)
	if namespace == "" {
		namespace = strings.TrimSpace(n.ModelURI)
	}
	record := core.NodesetRecord{
		Identifier:       string(n.Identifier),
		NamespaceURI:     namespace,
		PublicationDate:  n.PublicationDate.ptr(),
		Version:          n.Version,
		LastModified:     n.LastModified.ptr(),
		ValidationStatus: n.ValidationStatus,
		NodesetXML:       n.NodesetXML,
	}
	for _, model := range n.RequiredModels {
		record.RequiredModels = append(record.RequiredModels, core.RequiredModel{
			NamespaceURI:    model.ModelURI,
			PublicationDate: model.PublicationDate.ptr(),
			Version:         model.Version,
		})
	}
	if n.Metadata != nil {
		metadata := n.Metadata.toCore()
		record.Metadata = &metadata
	}
	return record
}

// toCore converts metadata without following the nested nodeset; callers
// attach it explicitly.
func (m wireMetadata) toCore() core.MetadataView {
	view := core.MetadataView{
		Title:                    m.Title,
		Description:              m.Description,
		License:                  m.License,
		CopyrightText:            m.CopyrightText,
		Contributor:              core.Organisation(m.Contributor),
		Category:                 core.Category(m.Category),
		Keywords:                 m.Keywords,
		DocumentationURL:         m.DocumentationURL,
		IconURL:                  m.IconURL,
		LicenseURL:               m.LicenseURL,
		PurchasingInformationURL: m.PurchasingInformationURL,
		ReleaseNotesURL:          m.ReleaseNotesURL,
		TestSpecificationURL:     m.TestSpecificationURL,
		SupportedLocales:         m.SupportedLocales,
		NumberOfDownloads:        m.NumberOfDownloads,
		ApprovalStatus:           core.NormalizeApprovalState(core.ApprovalState(m.ApprovalStatus)),
		ApprovalInformation:      m.ApprovalInformation,
	}
	for _, property := range m.AdditionalProperties {
		view.AdditionalProperties = append(view.AdditionalProperties, core.Property(property))
	}
	return view
}

func (m wireMetadata) toView() *core.MetadataView {
	view := m.toCore()
	if m.Nodeset != nil {
		owner := m.Nodeset.toCore()
		owner.Metadata = nil
		view.Nodeset = &owner
	}
	return &view
}

func (c wireConnection) toCore() core.ResultPage[core.NodesetRecord] {
	page := core.ResultPage[core.NodesetRecord]{
		PageInfo: core.PageInfo{
			HasNextPage:     c.PageInfo.HasNextPage,
			HasPreviousPage: c.PageInfo.HasPreviousPage,
			StartCursor:     c.PageInfo.StartCursor,
			EndCursor:       c.PageInfo.EndCursor,
		},
		TotalCount: c.TotalCount,
	}
	page.Edges = make([]core.Edge[core.NodesetRecord], 0, len(c.Edges))
	for _, edge := range c.Edges {
		page.Edges = append(page.Edges, core.Edge[core.NodesetRecord]{
			Node:   edge.Node.toCore(),
			Cursor: edge.Cursor,
		})
	}
	return page
}

// uploadPayload renders view as the registry's namespace document.
func uploadPayload(view core.MetadataView) wireMetadata {
	payload := wireMetadata{
		Title:                    view.Title,
		Description:              view.Description,
		License:                  view.License,
		CopyrightText:            view.CopyrightText,
		Contributor:              wireOrganisation(view.Contributor),
		Category:                 wireCategory(view.Category),
		Keywords:                 view.Keywords,
		DocumentationURL:         view.DocumentationURL,
		IconURL:                  view.IconURL,
		LicenseURL:               view.LicenseURL,
		PurchasingInformationURL: view.PurchasingInformationURL,
		ReleaseNotesURL:          view.ReleaseNotesURL,
		TestSpecificationURL:     view.TestSpecificationURL,
		SupportedLocales:         view.SupportedLocales,
		NumberOfDownloads:        view.NumberOfDownloads,
		ApprovalStatus:           string(view.ApprovalStatus),
		ApprovalInformation:      view.ApprovalInformation,
	}
	for _, property := range view.AdditionalProperties {
		payload.AdditionalProperties = append(payload.AdditionalProperties, wireProperty(property))
	}
	if view.Nodeset != nil {
		nodeset := view.Nodeset
		owner := wireNodeset{
			Identifier:       flexID(nodeset.Identifier),
			NamespaceURI:     nodeset.NamespaceURI,
			PublicationDate:  newFlexTime(nodeset.PublicationDate),
			Version:          nodeset.Version,
			LastModified:     newFlexTime(nodeset.LastModified),
			ValidationStatus: nodeset.ValidationStatus,
			NodesetXML:       nodeset.NodesetXML,
		}
		for _, model := range nodeset.RequiredModels {
			owner.RequiredModels = append(owner.RequiredModels, wireRequiredModel{
				ModelURI:        model.NamespaceURI,
				PublicationDate: newFlexTime(model.PublicationDate),
				Version:         model.Version,
			})
		}
		payload.Nodeset = &owner
	}
	return payload
}

// uploadMessage extracts the registry's reply text. The registry answers with
// a JSON string, a {"message": ...} object or plain text.
func uploadMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	var object struct {
		Message string `json:"message"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(trimmed, &object); err == nil {
		switch {
		case object.Message != "":
			return object.Message
		case object.Detail != "":
			return object.Detail
		case object.Title != "":
			return object.Title
		}
	}
	return string(trimmed)
}
