package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudlib/core"
)

type NodesetUploader interface {
	Upload(ctx context.Context, nodeset *core.MetadataView) (string, error)
}

type ApprovalStatusSetter interface {
	SetApprovalStatus(ctx context.Context, update core.ApprovalUpdate) (*core.MetadataView, error)
}

type UploadNodesetCommand struct {
	uploader NodesetUploader
}

func NewUploadNodesetCommand(uploader NodesetUploader) *UploadNodesetCommand {
	return &UploadNodesetCommand{uploader: uploader}
}

// Execute stores the registry message on success. A rejected upload surfaces
// as *core.UploadFailure.
func (c *UploadNodesetCommand) Execute(ctx context.Context, msg UploadNodesetMessage) error {
	if c == nil || c.uploader == nil {
		return commandDependencyError("command: nodeset uploader is required")
	}
	message, err := c.uploader.Upload(ctx, msg.Nodeset)
	if err != nil {
		return err
	}
	storeResult(ctx, message)
	return nil
}

type SetApprovalStatusCommand struct {
	setter ApprovalStatusSetter
}

func NewSetApprovalStatusCommand(setter ApprovalStatusSetter) *SetApprovalStatusCommand {
	return &SetApprovalStatusCommand{setter: setter}
}

func (c *SetApprovalStatusCommand) Execute(ctx context.Context, msg SetApprovalStatusMessage) error {
	if c == nil || c.setter == nil {
		return commandDependencyError("command: approval status setter is required")
	}
	view, err := c.setter.SetApprovalStatus(ctx, msg.Update)
	if err != nil {
		return err
	}
	storeResult(ctx, view)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
