package sqlstore

import "github.com/goliatone/go-cloudlib/core"

var (
	_ core.ActivityRecorder = (*ActivityStore)(nil)
	_ core.ActivityReader   = (*ActivityStore)(nil)
)
