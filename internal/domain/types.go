package domain

type (
	MsgId    = int64
	MsgName  = string
	MsgText  = string
	FileName = string
)
