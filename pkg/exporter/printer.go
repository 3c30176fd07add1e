package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// Format 决定 PrintObject 的输出形式
type Format string

const (
	FormatText Format = "text" // 人类可读；blob 直接输出内容
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
	FormatRaw  Format = "raw" // 存储里的原始字节 "<kind> <len>\0<payload>"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatCBOR, FormatRaw:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, cbor or raw)", s)
}

// 确定性 CBOR 编码：Map Key 排序，禁止不定长编码
var encOptions = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	IndefLength: cbor.IndefLengthForbidden,
}

var em, _ = encOptions.EncMode()

// ObjectView 是对象的结构化视图，JSON 和 CBOR 共用
type ObjectView struct {
	Hash    types.Hash      `json:"hash" cbor:"hash"`
	Kind    core.ObjectType `json:"kind" cbor:"kind"`
	Size    int64           `json:"size" cbor:"size"`
	Data    []byte          `json:"data,omitempty" cbor:"data,omitempty"`
	Entries []EntryView     `json:"entries,omitempty" cbor:"entries,omitempty"`
	Commit  *CommitView     `json:"commit,omitempty" cbor:"commit,omitempty"`
}

type EntryView struct {
	Kind core.ObjectType `json:"kind" cbor:"kind"`
	Hash types.Hash      `json:"hash" cbor:"hash"`
	Name string          `json:"name" cbor:"name"`
}

type CommitView struct {
	Tree    types.Hash `json:"tree" cbor:"tree"`
	Parent  types.Hash `json:"parent,omitempty" cbor:"parent,omitempty"`
	Author  string     `json:"author" cbor:"author"`
	Message string     `json:"message" cbor:"message"`
}

// NewObjectView 解码 Envelope 并生成视图
func NewObjectView(env *core.Envelope) (*ObjectView, error) {
	v := &ObjectView{Hash: env.ID(), Kind: env.Kind, Size: env.Size()}
	switch env.Kind {
	case core.TypeBlob:
		v.Data = env.Payload
	case core.TypeTree:
		tree, err := core.DecodeTree(env)
		if err != nil {
			return nil, err
		}
		v.Entries = make([]EntryView, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			v.Entries = append(v.Entries, EntryView{Kind: e.Kind, Hash: e.Hash, Name: e.Name})
		}
	case core.TypeCommit:
		c, err := core.DecodeCommit(env)
		if err != nil {
			return nil, err
		}
		v.Commit = &CommitView{Tree: c.Tree, Parent: c.Parent, Author: c.Author, Message: c.Message}
	}
	return v, nil
}

// PrintObject 读取对象并按 format 写入 w
func (e *Exporter) PrintObject(ctx context.Context, hash types.Hash, w io.Writer, format Format) error {
	if format == FormatRaw {
		data, err := storage.ReadRaw(ctx, e.store, hash)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	env, err := storage.Read(ctx, e.store, hash)
	if err != nil {
		return err
	}
	view, err := NewObjectView(env)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case FormatCBOR:
		data, err := em.Marshal(view)
		if err != nil {
			return fmt.Errorf("cbor encode failed: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return printText(view, w)
	}
}

func printText(v *ObjectView, w io.Writer) error {
	switch v.Kind {
	case core.TypeBlob:
		// 和 git cat-file -p 一样，直接输出内容
		_, err := w.Write(v.Data)
		return err

	case core.TypeTree:
		// 使用 tabwriter 对齐输出 (像 git ls-tree)
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		for _, e := range v.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Kind, e.Hash, e.Name)
		}
		return tw.Flush()

	case core.TypeCommit:
		c := v.Commit
		fmt.Fprintf(w, "tree    %s\n", c.Tree)
		if !c.Parent.IsZero() {
			fmt.Fprintf(w, "parent  %s\n", c.Parent)
		}
		fmt.Fprintf(w, "author  %s\n", c.Author)
		fmt.Fprintf(w, "\n    %s\n", c.Message)
		return nil
	}
	return fmt.Errorf("unknown object type: %s", v.Kind)
}

// FormatSize 把字节数格式化成可读形式
func FormatSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
