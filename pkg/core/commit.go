package core

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"objvault/pkg/types"
)

// commit payload 中各行的前缀
const (
	commitKeyTree    = "tree "
	commitKeyParent  = "parent "
	commitKeyAuthor  = "author "
	commitKeyMessage = "message "
)

// Commit 代表一个版本快照
// 历史是单链表：每个 Commit 最多一个 Parent，根提交的 Parent 为空
type Commit struct {
	Tree    types.Hash
	Parent  types.Hash // 空值表示根提交
	Author  string
	Message string

	env *Envelope
}

// NewCommit 创建并密封一个 Commit
// author 和 message 必须是非空的单行文本，否则序列化结果会有歧义
func NewCommit(tree, parent types.Hash, author, msg string) (*Commit, error) {
	if !tree.IsValid() {
		return nil, fmt.Errorf("%w: tree id %q", ErrInvalidCommitField, tree)
	}
	if !parent.IsZero() && !parent.IsValid() {
		return nil, fmt.Errorf("%w: parent id %q", ErrInvalidCommitField, parent)
	}
	if err := validateLine("author", author); err != nil {
		return nil, err
	}
	if err := validateLine("message", msg); err != nil {
		return nil, err
	}

	c := &Commit{
		Tree:    tree,
		Parent:  parent,
		Author:  author,
		Message: msg,
	}
	c.env = NewEnvelope(TypeCommit, SerializeCommit(c))
	return c, nil
}

func (c *Commit) Type() ObjectType    { return TypeCommit }
func (c *Commit) ID() types.Hash      { return c.env.ID() }
func (c *Commit) Bytes() []byte       { return c.env.Bytes() }
func (c *Commit) Envelope() *Envelope { return c.env }

// HasParent 为 false 表示这是历史链的根
func (c *Commit) HasParent() bool { return !c.Parent.IsZero() }

// SerializeCommit 按固定顺序输出:
//
//	tree <id>
//	parent <id>     (可选)
//	author <text>
//	message <text>
//
// 行之间用 \n 分隔，末尾没有换行
func SerializeCommit(c *Commit) []byte {
	var buf bytes.Buffer
	buf.WriteString(commitKeyTree + c.Tree.String())
	if c.HasParent() {
		buf.WriteString("\n" + commitKeyParent + c.Parent.String())
	}
	buf.WriteString("\n" + commitKeyAuthor + c.Author)
	buf.WriteString("\n" + commitKeyMessage + c.Message)
	return buf.Bytes()
}

// DeserializeCommit 按前缀识别各行，顺序任意
// 缺少 tree / author / message 视为损坏；缺少 parent 表示根提交
func DeserializeCommit(payload []byte) (*Commit, error) {
	if !utf8.Valid(payload) {
		return nil, corrupt(ErrInvalidEncoding, "commit payload is not valid UTF-8")
	}

	c := &Commit{}
	var hasTree, hasAuthor, hasMessage bool
	for _, line := range strings.Split(string(payload), "\n") {
		switch {
		case strings.HasPrefix(line, commitKeyTree):
			if hasTree {
				return nil, corrupt(ErrMalformedHeader, "duplicate tree line")
			}
			c.Tree, hasTree = types.Hash(strings.TrimPrefix(line, commitKeyTree)), true
		case strings.HasPrefix(line, commitKeyParent):
			if c.HasParent() {
				return nil, corrupt(ErrMalformedHeader, "more than one parent")
			}
			c.Parent = types.Hash(strings.TrimPrefix(line, commitKeyParent))
			if c.Parent.IsZero() {
				return nil, corrupt(ErrMalformedHeader, "empty parent line")
			}
		case strings.HasPrefix(line, commitKeyAuthor):
			if hasAuthor {
				return nil, corrupt(ErrMalformedHeader, "duplicate author line")
			}
			c.Author, hasAuthor = strings.TrimPrefix(line, commitKeyAuthor), true
		case strings.HasPrefix(line, commitKeyMessage):
			if hasMessage {
				return nil, corrupt(ErrMalformedHeader, "duplicate message line")
			}
			c.Message, hasMessage = strings.TrimPrefix(line, commitKeyMessage), true
		default:
			return nil, corrupt(ErrMalformedHeader, "unexpected commit line %q", line)
		}
	}

	switch {
	case !hasTree:
		return nil, corrupt(ErrMalformedHeader, "commit has no tree")
	case !hasAuthor:
		return nil, corrupt(ErrMalformedHeader, "commit has no author")
	case !hasMessage:
		return nil, corrupt(ErrMalformedHeader, "commit has no message")
	}
	if !c.Tree.IsValid() {
		return nil, corrupt(ErrInvalidEncoding, "tree id %q", c.Tree)
	}
	if c.HasParent() && !c.Parent.IsValid() {
		return nil, corrupt(ErrInvalidEncoding, "parent id %q", c.Parent)
	}

	c.env = NewEnvelope(TypeCommit, payload)
	return c, nil
}

// DecodeCommit 从通用对象还原 Commit
func DecodeCommit(e *Envelope) (*Commit, error) {
	if err := expectKind(e, TypeCommit); err != nil {
		return nil, err
	}
	c, err := DeserializeCommit(e.Payload)
	if err != nil {
		return nil, err
	}
	c.env = e
	return c, nil
}

func validateLine(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidCommitField, field)
	}
	if strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("%w: %s must be a single line", ErrInvalidCommitField, field)
	}
	if !utf8.ValidString(v) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidCommitField, field)
	}
	return nil
}
