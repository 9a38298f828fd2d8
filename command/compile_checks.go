package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudlib/core"
)

var (
	_ gocmd.Commander[UploadNodesetMessage]     = (*UploadNodesetCommand)(nil)
	_ gocmd.Commander[SetApprovalStatusMessage] = (*SetApprovalStatusCommand)(nil)

	_ NodesetUploader      = (*core.Client)(nil)
	_ ApprovalStatusSetter = (*core.Client)(nil)
)
