package remote

import (
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-cloudlib/core"
)

const (
	fieldNodeSets                = "nodeSets"
	fieldNodeSetsPendingApproval = "nodeSetsPendingApproval"
	fieldApproveNodeSet          = "approveNodeSet"
)

const metadataSelection = `title description license copyrightText
contributor { name description logoUrl contactEmail website }
category { name description iconUrl }
keywords documentationUrl iconUrl licenseUrl purchasingInformationUrl
releaseNotesUrl testSpecificationUrl supportedLocales numberOfDownloads
approvalStatus approvalInformation additionalProperties { name value }`

const requiredModelsSelection = `requiredModels { modelUri publicationDate version }`

const nodeSelection = `identifier modelUri publicationDate version validationStatus lastModifiedDate`

// graphQLVariable is one declared argument of a generated document.
type graphQLVariable struct {
	name    string
	gqlType string
	value   any
}

// nodesetsDocument renders a connection query for field from query. Only the
// arguments that are set are declared and sent; selections for totalCount,
// requiredModels and metadata follow the No* flags.
func nodesetsDocument(field string, query core.NodesetQuery) (string, map[string]any) {
	vars := nodesetsVariables(field, query)

	var doc strings.Builder
	doc.WriteString("query ")
	doc.WriteString(operationName(field))
	writeDeclarations(&doc, vars)
	doc.WriteString(" {\n  ")
	doc.WriteString(field)
	writeArguments(&doc, vars)
	doc.WriteString(" {\n")
	if !query.NoTotalCount {
		doc.WriteString("    totalCount\n")
	}
	doc.WriteString("    pageInfo { hasNextPage hasPreviousPage startCursor endCursor }\n")
	doc.WriteString("    edges {\n      cursor\n      node {\n        ")
	doc.WriteString(nodeSelection)
	doc.WriteString("\n")
	if !query.NoRequiredModels {
		doc.WriteString("        ")
		doc.WriteString(requiredModelsSelection)
		doc.WriteString("\n")
	}
	if !query.NoMetadata {
		doc.WriteString("        metadata { ")
		doc.WriteString(metadataSelection)
		doc.WriteString(" }\n")
	}
	doc.WriteString("      }\n    }\n  }\n}")

	return doc.String(), variableValues(vars)
}

func nodesetsVariables(field string, query core.NodesetQuery) []graphQLVariable {
	vars := []graphQLVariable{}
	add := func(name string, gqlType string, value any) {
		vars = append(vars, graphQLVariable{name: name, gqlType: gqlType, value: value})
	}
	if id := strings.TrimSpace(query.Identifier); id != "" {
		add("identifier", "String", id)
	}
	if uri := strings.TrimSpace(query.NamespaceURI); uri != "" {
		add("modelUri", "String", uri)
	}
	if query.PublicationDate != nil {
		add("publicationDate", "DateTime", query.PublicationDate.UTC().Format(time.RFC3339))
	}
	if len(query.Keywords) > 0 {
		add("keywords", "[String]", append([]string(nil), query.Keywords...))
	}
	if query.After != "" {
		add("after", "String", query.After)
	}
	if query.First != nil {
		add("first", "Int", *query.First)
	}
	if query.Before != "" {
		add("before", "String", query.Before)
	}
	if query.Last != nil {
		add("last", "Int", *query.Last)
	}
	if field == fieldNodeSetsPendingApproval && query.Property != nil {
		add("additionalProperty", "UAPropertyInput", map[string]any{
			"name":  query.Property.Name,
			"value": query.Property.Value,
		})
	}
	return vars
}

func approvalDocument(update core.ApprovalUpdate) (string, map[string]any) {
	input := map[string]any{
		"identifier": update.Identifier,
		"status":     string(update.State),
	}
	if info := strings.TrimSpace(update.StatusInfo); info != "" {
		input["approvalInformation"] = info
	}
	if update.Property != nil {
		input["additionalProperty"] = map[string]any{
			"name":  update.Property.Name,
			"value": update.Property.Value,
		}
	}
	vars := []graphQLVariable{{name: "input", gqlType: "ApprovalInput!", value: input}}

	var doc strings.Builder
	doc.WriteString("mutation ")
	doc.WriteString(operationName(fieldApproveNodeSet))
	writeDeclarations(&doc, vars)
	doc.WriteString(" {\n  ")
	doc.WriteString(fieldApproveNodeSet)
	writeArguments(&doc, vars)
	doc.WriteString(" {\n    ")
	doc.WriteString(metadataSelection)
	doc.WriteString("\n    nodeset { ")
	doc.WriteString(nodeSelection)
	doc.WriteString(" }\n  }\n}")

	return doc.String(), variableValues(vars)
}

func operationName(field string) string {
	if field == "" {
		return ""
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func writeDeclarations(doc *strings.Builder, vars []graphQLVariable) {
	if len(vars) == 0 {
		return
	}
	parts := make([]string, 0, len(vars))
	for _, variable := range vars {
		parts = append(parts, "$"+variable.name+": "+variable.gqlType)
	}
	doc.WriteString("(")
	doc.WriteString(strings.Join(parts, ", "))
	doc.WriteString(")")
}

func writeArguments(doc *strings.Builder, vars []graphQLVariable) {
	if len(vars) == 0 {
		return
	}
	parts := make([]string, 0, len(vars))
	for _, variable := range vars {
		parts = append(parts, variable.name+": $"+variable.name)
	}
	doc.WriteString("(")
	doc.WriteString(strings.Join(parts, ", "))
	doc.WriteString(")")
}

func variableValues(vars []graphQLVariable) map[string]any {
	values := make(map[string]any, len(vars))
	for _, variable := range vars {
		values[variable.name] = variable.value
	}
	return values
}

// variableNames is used by tests and debug logging.
func variableNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
