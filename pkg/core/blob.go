package core

import "objvault/pkg/types"

// Blob 代表一个文件的完整内容
// 它是 Merkle DAG 的叶子节点
type Blob struct {
	Data []byte

	env *Envelope
}

func NewBlob(data []byte) *Blob {
	return &Blob{
		Data: data,
		env:  NewEnvelope(TypeBlob, data),
	}
}

// DecodeBlob 从通用对象还原 Blob
func DecodeBlob(e *Envelope) (*Blob, error) {
	if err := expectKind(e, TypeBlob); err != nil {
		return nil, err
	}
	return &Blob{Data: e.Payload, env: e}, nil
}

func (b *Blob) Type() ObjectType    { return TypeBlob }
func (b *Blob) ID() types.Hash      { return b.env.ID() }
func (b *Blob) Bytes() []byte       { return b.env.Bytes() }
func (b *Blob) Size() int64         { return int64(len(b.Data)) }
func (b *Blob) Envelope() *Envelope { return b.env }
