package decoder

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Decoder 将配置文件内容解码为嵌套 map
type Decoder interface {
	Decode(data []byte) (map[string]any, error)
}

var decoders = map[string]Decoder{
	".yaml": NewYamlDecoder(),
	".yml":  NewYamlDecoder(),
	".toml": NewTomlDecoder(),
	".json": NewJsonDecoder(),
	".ini":  NewIniDecoder(),
}

// ForFile 按扩展名选择解码器
func ForFile(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decoders[ext]
	if !ok {
		return nil, errors.Errorf("unsupported config file extension %q", ext)
	}
	return d, nil
}
