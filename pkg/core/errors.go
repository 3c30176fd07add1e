package core

import (
	"errors"
	"fmt"
)

// ErrCorrupt 是所有解码失败的父错误
// errors.Is(err, ErrCorrupt) 对下面任意一个具体原因都成立
var ErrCorrupt = errors.New("corrupt object")

var (
	ErrMissingDelimiter = errors.New("missing header delimiter")
	ErrMalformedHeader  = errors.New("malformed header")
	ErrUnknownKind      = errors.New("unknown object kind")
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrInvalidEncoding  = errors.New("invalid encoding")
)

// 写入侧的校验错误 (不属于 Corrupt，调用方传了非法参数)
var (
	ErrInvalidCommitField = errors.New("invalid commit field")
	ErrInvalidTreeEntry   = errors.New("invalid tree entry")
	ErrKindMismatch       = errors.New("object kind mismatch")
)

// CorruptError 描述一次具体的解码失败
type CorruptError struct {
	Reason error  // 上面的某个具体原因
	Detail string // 给人看的上下文
}

func corrupt(reason error, format string, args ...any) error {
	return &CorruptError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (e *CorruptError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %v", ErrCorrupt, e.Reason)
	}
	return fmt.Sprintf("%v: %v: %s", ErrCorrupt, e.Reason, e.Detail)
}

// Unwrap 同时暴露 ErrCorrupt 和具体原因
func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorrupt, e.Reason}
}
