package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"objvault/pkg/types"
)

// TreeEntry 是目录树中的一条记录
// Kind 只能是 TypeBlob (文件) 或 TypeTree (子目录)
type TreeEntry struct {
	Kind ObjectType
	Hash types.Hash
	Name string
}

// Tree 持有按 Name 排序的条目
type Tree struct {
	Entries []TreeEntry // sorted by Name

	env *Envelope
}

// NewTree 创建一个新的目录树节点
// 条目会被复制并按名字排序，调用方发现文件的顺序不影响 Hash
func NewTree(entries []TreeEntry) (*Tree, error) {
	sorted := sortedEntries(entries)
	for i, e := range sorted {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidTreeEntry, e.Name)
		}
	}
	return &Tree{
		Entries: sorted,
		env:     NewEnvelope(TypeTree, encodeTree(sorted)),
	}, nil
}

// NewTreeEntryFromObject 自动根据子对象生成条目
func NewTreeEntryFromObject(name string, child Object) (TreeEntry, error) {
	switch child.Type() {
	case TypeBlob, TypeTree:
	default:
		// Commit 不能作为 Tree 的子节点
		return TreeEntry{}, fmt.Errorf("%w: %s cannot be an entry inside a tree", ErrInvalidTreeEntry, child.Type())
	}
	return TreeEntry{Kind: child.Type(), Hash: child.ID(), Name: name}, nil
}

func (t *Tree) Type() ObjectType    { return TypeTree }
func (t *Tree) ID() types.Hash      { return t.env.ID() }
func (t *Tree) Bytes() []byte       { return t.env.Bytes() }
func (t *Tree) Envelope() *Envelope { return t.env }

// Lookup 按名字查找条目 (二分，Entries 已排序)
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Name >= name })
	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i], true
	}
	return TreeEntry{}, false
}

// SerializeTree 生成规范的 tree payload:
//
//	<kind> <64-hex-id> <name>
//
// 每行一条，按 name 升序，\n 分隔，末尾没有换行
func SerializeTree(entries []TreeEntry) []byte {
	return encodeTree(sortedEntries(entries))
}

func encodeTree(sorted []TreeEntry) []byte {
	var buf bytes.Buffer
	for i, e := range sorted {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(e.Kind.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Hash.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
	}
	return buf.Bytes()
}

// DeserializeTree 解析 tree payload，返回按 name 排序的条目
// 每行最多切成 3 段，所以 name 里可以包含空格
func DeserializeTree(payload []byte) ([]TreeEntry, error) {
	if !utf8.Valid(payload) {
		return nil, corrupt(ErrInvalidEncoding, "tree payload is not valid UTF-8")
	}

	var entries []TreeEntry
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, corrupt(ErrMalformedHeader, "tree entry %q", line)
		}

		kind, err := ParseObjectType(parts[0])
		if err != nil {
			return nil, err
		}
		if kind == TypeCommit {
			return nil, corrupt(ErrUnknownKind, "tree entry kind %q", parts[0])
		}

		h := types.Hash(parts[1])
		if !h.IsValid() {
			return nil, corrupt(ErrInvalidEncoding, "tree entry id %q", parts[1])
		}

		if !validName(parts[2]) {
			return nil, corrupt(ErrMalformedHeader, "tree entry name %q", parts[2])
		}

		entries = append(entries, TreeEntry{Kind: kind, Hash: h, Name: parts[2]})
	}

	sorted := sortedEntries(entries)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Name == sorted[i].Name {
			return nil, corrupt(ErrMalformedHeader, "duplicate tree entry name %q", sorted[i].Name)
		}
	}
	return sorted, nil
}

// DecodeTree 从通用对象还原 Tree
func DecodeTree(e *Envelope) (*Tree, error) {
	if err := expectKind(e, TypeTree); err != nil {
		return nil, err
	}
	entries, err := DeserializeTree(e.Payload)
	if err != nil {
		return nil, err
	}
	return &Tree{Entries: entries, env: e}, nil
}

func sortedEntries(entries []TreeEntry) []TreeEntry {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	// 为了保证 Merkle Tree Hash 的确定性，必须按文件名排序
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func validateEntry(e TreeEntry) error {
	if e.Kind != TypeBlob && e.Kind != TypeTree {
		return fmt.Errorf("%w: kind %q", ErrInvalidTreeEntry, e.Kind)
	}
	if !e.Hash.IsValid() {
		return fmt.Errorf("%w: id %q", ErrInvalidTreeEntry, e.Hash)
	}
	if !validName(e.Name) {
		return fmt.Errorf("%w: name %q", ErrInvalidTreeEntry, e.Name)
	}
	return nil
}

// validName 读写两侧共用，保证还原时不会跳出目标目录
// 换行会破坏行格式，"/" 和 NUL 不可能是合法的文件名
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "\n/\x00")
}
