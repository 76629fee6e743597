package entity

import "errors"

// ErrInvalidTransition 非法状态迁移
var ErrInvalidTransition = errors.New("invalid status transition")
