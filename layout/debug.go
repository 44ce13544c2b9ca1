package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteDebugYAML 将布局结果输出为 YAML，多行 TeX 片段更易读。
func WriteDebugYAML(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteDebug 按扩展名选择 JSON 或 YAML。
func WriteDebug(res *Result, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return WriteDebugYAML(res, path)
	case ".json", "":
		return WriteDebugJSON(res, path)
	default:
		return fmt.Errorf("不支持的调试输出格式: %s", path)
	}
}
