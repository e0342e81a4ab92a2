package log

import (
	"sync/atomic"

	"github.com/hatlonely/ormx/log/logger"
	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[logger.SLog](logger.NewSLogWithOptions)

	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("init default logger failed: " + err.Error())
	}
	SetDefault(l)
}

var defaultLogger atomic.Value

// Default 进程级默认日志，未配置组件日志时使用
func Default() logger.Logger {
	return defaultLogger.Load().(*holder).l
}

func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(&holder{l: l})
	}
}

type holder struct {
	l logger.Logger
}

// NewLoggerWithOptions 按配置创建日志，Namespace 为空时使用 logger 包
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options != nil && options.Namespace == "" {
		o := *options
		o.Namespace = "github.com/hatlonely/ormx/log/logger"
		options = &o
	}
	l, err := ref.NewWithOptions[logger.Logger](options)
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}
	return l, nil
}
