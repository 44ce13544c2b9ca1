package citation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidRule 表示引文规则配置错误。
var ErrInvalidRule = errors.New("citation: 规则无效")

// Matcher 用单个正则匹配记号，并把命中的部分包进引文命令。
type Matcher struct {
	command string
	pattern *regexp.Regexp
}

// New 编译引文规则；command 形如 `\citefont`。
func New(command, pattern string) (*Matcher, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("%w: 缺少 command", ErrInvalidRule)
	}
	if !strings.HasPrefix(command, `\`) {
		command = `\` + command
	}
	if pattern == "" {
		return nil, fmt.Errorf("%w: 缺少 pattern", ErrInvalidRule)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidRule, pattern, err)
	}
	return &Matcher{command: command, pattern: re}, nil
}

// Command 返回引文命令名。
func (m *Matcher) Command() string { return m.command }

// Apply 从 token 开头尝试匹配。命中时返回 command{第一个分组}，没有分组时使用整个匹配。
func (m *Matcher) Apply(token string) (string, bool) {
	if m == nil {
		return token, false
	}
	loc := m.pattern.FindStringSubmatchIndex(token)
	if loc == nil || loc[0] != 0 {
		return token, false
	}
	body := token[loc[0]:loc[1]]
	if len(loc) > 2 && loc[2] >= 0 {
		body = token[loc[2]:loc[3]]
	}
	return m.command + "{" + body + "}", true
}

// Substitutions 是逐条应用的正则替换表。
type Substitutions struct {
	rules []substitution
}

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rule 是一条替换规则；Replacement 可引用 ${1} 等分组。
type Rule struct {
	Pattern     string
	Replacement string
}

// Compile 按给定顺序编译替换规则。
func Compile(rules ...Rule) (*Substitutions, error) {
	s := &Substitutions{}
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: substitution %q: %w", ErrInvalidRule, r.Pattern, err)
		}
		s.rules = append(s.rules, substitution{pattern: re, replacement: r.Replacement})
	}
	return s, nil
}

// NewSubstitutions 从映射编译替换表，规则按键名排序。
func NewSubstitutions(table map[string]string) (*Substitutions, error) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rules := make([]Rule, 0, len(keys))
	for _, k := range keys {
		rules = append(rules, Rule{Pattern: k, Replacement: table[k]})
	}
	return Compile(rules...)
}

// Len 返回规则数量。
func (s *Substitutions) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Substitute 依次应用所有替换。
func (s *Substitutions) Substitute(text string) string {
	if s == nil {
		return text
	}
	for _, r := range s.rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
