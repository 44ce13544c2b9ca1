package fonts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed header.tex
var defaultHeader string

// ErrFontNotFound 表示字体文件不存在。
var ErrFontNotFound = errors.New("fonts: 找不到字体文件")

// extensions 是 fontspec 按文件名查找字体时会尝试的扩展名。
var extensions = []string{"", ".otf", ".ttf"}

// Locate 在 dir 下查找名为 name 的字体文件；name 可省略扩展名。
func Locate(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: 未指定字体名", ErrFontNotFound)
	}
	for _, ext := range extensions {
		if ext != "" && strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		p := filepath.Join(dir, name+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFontNotFound, filepath.Join(dir, name))
}

// Load 返回字体文件的字节数据。
func Load(dir, name string) ([]byte, error) {
	p, err := Locate(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", p, err)
	}
	return data, nil
}
