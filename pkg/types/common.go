// pkg/types/common.go
package types

// Hash 代表对象的唯一标识符 (SHA-256 Hex String)
// 这是一个"值对象"，应当是不可变的。
type Hash string

// HashLen 是完整 Hash 的字符数 (32 字节 * 2)
const HashLen = 64

// shardLen 是分片目录名的长度
const shardLen = 2

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool { return h == "" }

// IsValid 要求 64 个小写十六进制字符
func (h Hash) IsValid() bool {
	if len(h) != HashLen {
		return false
	}
	for i := 0; i < len(h); i++ {
		if !isLowerHex(h[i]) {
			return false
		}
	}
	return true
}

// Shard 把 Hash 拆成 2 字符的目录名和剩余 62 字符的文件名
// Example: "aabbcc..." -> ("aa", "bbcc...")
func (h Hash) Shard() (dir, rest string) {
	s := string(h)
	if len(s) <= shardLen {
		return s, ""
	}
	return s[:shardLen], s[shardLen:]
}

// Short 返回用于展示的前 8 位
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// HashPrefix 是用户输入的短哈希 (例如 "a8fd12")
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// IsValid 只检查字符集，长度限制由存储层决定
func (p HashPrefix) IsValid() bool {
	if p == "" || len(p) > HashLen {
		return false
	}
	for i := 0; i < len(p); i++ {
		if !isLowerHex(p[i]) {
			return false
		}
	}
	return true
}

// IsFull 表示前缀已经是一个完整 Hash，无需展开
func (p HashPrefix) IsFull() bool { return Hash(p).IsValid() }

func isLowerHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f')
}
