package core

import (
	"crypto/sha256"
	"encoding/hex"

	"objvault/pkg/types"
)

// Digest 计算 SHA-256 摘要 (32 字节)
func Digest(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// ToHex 将字节编码为小写十六进制字符串，长度恒为 2*len(b)
func ToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HashBytes 计算原始数据的 Hash (ToHex(Digest(data)))
// 对象的 ID 就是对完整序列化字节 (包含 header) 调用它的结果
func HashBytes(data []byte) types.Hash {
	sum := Digest(data)
	return types.Hash(ToHex(sum[:]))
}
