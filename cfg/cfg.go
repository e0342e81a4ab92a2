package cfg

import (
	"os"
	"strings"

	"github.com/hatlonely/ormx/cfg/decoder"
	"github.com/hatlonely/ormx/cfg/validator"
	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
)

type options struct {
	envPrefix string
	environ   []string
}

type Option func(*options)

// WithEnvPrefix 以 PREFIX_A_B 形式的环境变量覆盖配置项 a.b，匹配不区分大小写
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// WithEnviron 替换 os.Environ 作为环境变量来源
func WithEnviron(environ []string) Option {
	return func(o *options) { o.environ = environ }
}

// Load 读取配置文件到 out：解码、环境变量覆盖、填充默认值、校验
//
//	var options access.Options
//	err := cfg.Load("ormx.yaml", &options, cfg.WithEnvPrefix("ORMX"))
func Load(path string, out any, opts ...Option) error {
	d, err := decoder.ForFile(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s failed", path)
	}
	m, err := d.Decode(data)
	if err != nil {
		return errors.WithMessagef(err, "decode config %s failed", path)
	}
	return Decode(m, out, opts...)
}

// Decode 将已解码的 map 转换到 out，流程同 Load
func Decode(m map[string]any, out any, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = map[string]any{}
	}
	if o.envPrefix != "" {
		environ := o.environ
		if environ == nil {
			environ = os.Environ()
		}
		overlayEnv(m, o.envPrefix, environ)
	}

	if err := ref.Decode(m, out); err != nil {
		return err
	}
	if err := SetDefaults(out); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if err := validator.ValidateStruct(out); err != nil {
		return errors.Wrap(err, "validate config failed")
	}
	return nil
}

func overlayEnv(m map[string]any, prefix string, environ []string) {
	prefix = strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(key), prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(key[len(prefix):]), "_")
		set(m, path, value)
	}
}

// set 沿路径写入，已有键按不区分大小写匹配
func set(m map[string]any, path []string, value string) {
	for i, part := range path {
		key := part
		for k := range m {
			if strings.EqualFold(k, part) {
				key = k
				break
			}
		}
		if i == len(path)-1 {
			m[key] = value
			return
		}
		child, ok := m[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[key] = child
		}
		m = child
	}
}
