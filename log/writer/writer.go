package writer

import (
	"io"

	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[ConsoleWriter](NewConsoleWriterWithOptions)
	ref.MustRegisterT[FileWriter](NewFileWriterWithOptions)
	ref.MustRegisterT[MultiWriter](NewMultiWriterWithOptions)
}

// Writer 日志输出器
type Writer interface {
	io.Writer
	io.Closer
}

// NewWriterWithOptions 按配置创建输出器，Namespace 为空时使用本包
func NewWriterWithOptions(options *ref.TypeOptions) (Writer, error) {
	if options != nil && options.Namespace == "" {
		o := *options
		o.Namespace = "github.com/hatlonely/ormx/log/writer"
		options = &o
	}
	w, err := ref.NewWithOptions[Writer](options)
	if err != nil {
		return nil, errors.WithMessage(err, "create writer failed")
	}
	return w, nil
}
