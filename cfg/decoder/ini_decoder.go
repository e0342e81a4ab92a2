package decoder

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder 默认分区的键在顶层，其余分区各为一层 map
// 分区名中的 "." 表示嵌套，如 [database.pool]
type IniDecoder struct{}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{}
}

func (i *IniDecoder) Decode(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			target = nested(result, strings.Split(section.Name(), "."))
		}
		for _, key := range section.Keys() {
			target[key.Name()] = key.String()
		}
	}
	return result, nil
}

func nested(m map[string]any, path []string) map[string]any {
	for _, part := range path {
		child, ok := m[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[part] = child
		}
		m = child
	}
	return m
}
