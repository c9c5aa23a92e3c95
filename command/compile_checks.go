package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[PushObjectMessage] = (*PushObjectCommand)(nil)
	_ gocmd.Commander[SyncRecordMessage] = (*SyncRecordCommand)(nil)
	_ gocmd.Commander[ManualPushMessage] = (*ManualPushCommand)(nil)
)
