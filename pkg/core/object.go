package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"objvault/pkg/types"
)

// ObjectType 定义了 objvault 中的对象类型
// 这是一个封闭集合：解码时遇到集合外的值一律报错，没有默认分支
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"   // 文件内容
	TypeTree   ObjectType = "tree"   // 目录快照
	TypeCommit ObjectType = "commit" // 版本快照
)

// ParseObjectType 把 header 中的类型单词映射为 ObjectType
func ParseObjectType(word string) (ObjectType, error) {
	switch ObjectType(word) {
	case TypeBlob:
		return TypeBlob, nil
	case TypeTree:
		return TypeTree, nil
	case TypeCommit:
		return TypeCommit, nil
	}
	return "", corrupt(ErrUnknownKind, "%q", word)
}

func (t ObjectType) String() string { return string(t) }

// Object 是所有对象的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的 Hash (对完整序列化字节求 SHA-256)
	ID() types.Hash

	// Bytes 返回完整序列化数据 "<kind> <len>\0<payload>" (用于存储)
	Bytes() []byte
}

// Envelope 是存储层看到的对象：类型 + 原始负载
// 构造时即完成序列化和哈希 (Seal)，之后不可变
type Envelope struct {
	Kind    ObjectType
	Payload []byte

	hash     types.Hash
	rawBytes []byte
}

// NewEnvelope 创建并密封一个对象
func NewEnvelope(kind ObjectType, payload []byte) *Envelope {
	e := &Envelope{
		Kind:    kind,
		Payload: payload,
	}
	e.rawBytes = serialize(kind, payload)
	e.hash = HashBytes(e.rawBytes)
	return e
}

func (e *Envelope) Type() ObjectType { return e.Kind }
func (e *Envelope) ID() types.Hash   { return e.hash }
func (e *Envelope) Bytes() []byte    { return e.rawBytes }
func (e *Envelope) Size() int64      { return int64(len(e.Payload)) }

// Serialize 返回序列化字节的副本
func (e *Envelope) Serialize() []byte {
	out := make([]byte, len(e.rawBytes))
	copy(out, e.rawBytes)
	return out
}

func serialize(kind ObjectType, payload []byte) []byte {
	header := kind.String() + " " + strconv.Itoa(len(payload)) + "\x00"
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// Deserialize 解析 "<kind> <len>\0<payload>"
//
// 失败原因依次为: 找不到 NUL (ErrMissingDelimiter)、header 不是 UTF-8 (ErrInvalidEncoding)、
// header 不是恰好两个 token (ErrMalformedHeader)、类型未知 (ErrUnknownKind)、
// 长度不是非负整数 (ErrInvalidEncoding)、实际长度不符 (ErrSizeMismatch)。
func Deserialize(data []byte) (*Envelope, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return nil, corrupt(ErrMissingDelimiter, "no NUL byte in %d bytes", len(data))
	}
	headerBytes := data[:nul]
	payload := data[nul+1:]

	if !utf8.Valid(headerBytes) {
		return nil, corrupt(ErrInvalidEncoding, "header is not valid UTF-8")
	}
	header := string(headerBytes)

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return nil, corrupt(ErrMalformedHeader, "header %q", header)
	}

	kind, err := ParseObjectType(parts[0])
	if err != nil {
		return nil, err
	}

	size, err := strconv.ParseUint(parts[1], 10, 63)
	if err != nil {
		return nil, corrupt(ErrInvalidEncoding, "length %q", parts[1])
	}
	if uint64(len(payload)) != size {
		return nil, corrupt(ErrSizeMismatch, "header=%d, actual=%d", size, len(payload))
	}

	// 拷贝一份，避免调用方复用 buffer 污染对象
	owned := make([]byte, len(payload))
	copy(owned, payload)
	return NewEnvelope(kind, owned), nil
}

// expectKind 在类型化解码前检查类型
func expectKind(e *Envelope, want ObjectType) error {
	if e.Kind != want {
		return fmt.Errorf("object %s: %w: got %q, want %q", e.ID().Short(), ErrKindMismatch, e.Kind, want)
	}
	return nil
}
