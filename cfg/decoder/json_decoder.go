package decoder

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

// Decode 数字保留为 json.Number，由 mapstructure 按目标类型转换
func (j *JsonDecoder) Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	result := map[string]any{}
	if err := dec.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "json.Decode failed")
	}
	return result, nil
}
