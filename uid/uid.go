package uid

import (
	"context"

	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[SnowflakeGenerator](NewSnowflakeGeneratorWithOptions)
	ref.MustRegisterT[TimestampSeqGenerator](NewTimestampSeqGenerator)
	ref.MustRegisterT[RedisGenerator](NewRedisGeneratorWithOptions)
	ref.MustRegisterT[UUIDGenerator](NewUUIDGeneratorWithOptions)
}

// IntGenerator 整数主键生成器
type IntGenerator interface {
	// Generate 生成一个新的主键值，同一生成器返回的值不重复
	Generate(ctx context.Context) (int64, error)
}

// StrGenerator 字符串主键生成器
type StrGenerator interface {
	Generate() string
}

// NewIntGeneratorWithOptions 按配置创建整数生成器，Namespace 为空时使用本包
func NewIntGeneratorWithOptions(options *ref.TypeOptions) (IntGenerator, error) {
	g, err := ref.NewWithOptions[IntGenerator](withNamespace(options))
	if err != nil {
		return nil, errors.WithMessage(err, "create int generator failed")
	}
	return g, nil
}

// NewStrGeneratorWithOptions 按配置创建字符串生成器，Namespace 为空时使用本包
func NewStrGeneratorWithOptions(options *ref.TypeOptions) (StrGenerator, error) {
	g, err := ref.NewWithOptions[StrGenerator](withNamespace(options))
	if err != nil {
		return nil, errors.WithMessage(err, "create string generator failed")
	}
	return g, nil
}

func withNamespace(options *ref.TypeOptions) *ref.TypeOptions {
	if options == nil || options.Namespace != "" {
		return options
	}
	o := *options
	o.Namespace = "github.com/hatlonely/ormx/uid"
	return &o
}
