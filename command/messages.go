package command

import (
	"strings"

	"github.com/goliatone/go-cloudlib/core"
)

const (
	TypeUploadNodeset     = "cloudlib.command.nodeset.upload"
	TypeSetApprovalStatus = "cloudlib.command.nodeset.approval_status.set"
)

type UploadNodesetMessage struct {
	Nodeset *core.MetadataView
}

func (UploadNodesetMessage) Type() string { return TypeUploadNodeset }

func (m UploadNodesetMessage) Validate() error {
	if m.Nodeset == nil {
		return commandValidationError("nodeset", "nodeset payload is required")
	}
	return nil
}

type SetApprovalStatusMessage struct {
	Update core.ApprovalUpdate
}

func (SetApprovalStatusMessage) Type() string { return TypeSetApprovalStatus }

func (m SetApprovalStatusMessage) Validate() error {
	if strings.TrimSpace(m.Update.Identifier) == "" {
		return commandValidationError("identifier", "identifier is required")
	}
	if strings.TrimSpace(string(m.Update.State)) == "" {
		return commandValidationError("state", "approval state is required")
	}
	if m.Update.Property != nil && strings.TrimSpace(m.Update.Property.Name) == "" {
		return commandValidationError("property.name", "property name is required when a property is set")
	}
	return nil
}
