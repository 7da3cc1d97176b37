package domain

import "errors"

// 核心业务错误，handler 层通过 errors.Is 映射为对应的响应
var (
	ErrNotAParticipant  = errors.New("您不是该班表的参与者")
	ErrPermissionDenied = errors.New("权限不足")
	ErrNoRecipient      = errors.New("目标时段没有被分配的参与者")
	ErrInvalidState     = errors.New("该交换请求已被处理")
	ErrStaleEdit        = errors.New("服务端存在更新的修改")
	ErrDuplicateRequest = errors.New("这两个时段之间已存在待处理的交换请求")
)
