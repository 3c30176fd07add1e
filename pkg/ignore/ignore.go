package ignore

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则的文件名
const FileName = ".ovignore"

// Matcher 封装了忽略逻辑
// 它负责判断一个文件是否应该被排除在快照之外
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// 系统级默认忽略规则，强制生效
var defaultRules = []string{
	// --- 关键系统目录 ---
	".ov",  // 仓库元数据目录，收录它会导致快照包含自身
	".git", // 忽略 Git 仓库数据

	// --- 常见垃圾文件 ---
	".DS_Store", // macOS
	"Thumbs.db", // Windows
}

// NewMatcher 初始化忽略匹配器
// rootPath: 工作目录根 (用于查找 .ovignore 文件)
func NewMatcher(rootPath string) (*Matcher, error) {
	ignoreFilePath := filepath.Join(rootPath, FileName)

	if _, err := os.Stat(ignoreFilePath); err != nil {
		// 用户没定义 .ovignore，仅编译默认规则
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(defaultRules...)}, nil
	}

	// 把文件内容和默认规则合并编译
	ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// FromLines 直接用规则构造 (测试和嵌入场景)
func FromLines(lines ...string) *Matcher {
	return &Matcher{ignorer: gitignore.CompileIgnoreLines(append(lines, defaultRules...)...)}
}

// Matches 检查给定的路径是否匹配忽略规则
// path: 相对于工作目录根的路径，使用 "/" 分隔 (例如 "data/model.bin")
// 返回: true 表示应该忽略
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(path)
}

// MatchesDir 额外尝试带尾部斜杠的形式，让 "build/" 这类只匹配目录的规则生效
func (m *Matcher) MatchesDir(path string) bool {
	return m.Matches(path) || m.Matches(path+"/")
}
