package writer

import (
	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
)

type MultiWriterOptions struct {
	Writers []*ref.TypeOptions `cfg:"writers" validate:"required,min=1"`
}

// MultiWriter 依次写入全部输出器，遇到错误立即返回
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriterWithOptions(options *MultiWriterOptions) (*MultiWriter, error) {
	if options == nil || len(options.Writers) == 0 {
		return nil, errors.New("at least one writer is required")
	}

	writers := make([]Writer, 0, len(options.Writers))
	for i, o := range options.Writers {
		w, err := NewWriterWithOptions(o)
		if err != nil {
			return nil, errors.WithMessagef(err, "writer #%d", i)
		}
		writers = append(writers, w)
	}
	return &MultiWriter{writers: writers}, nil
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	for i, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, errors.Wrapf(err, "writer #%d", i)
		}
	}
	return len(p), nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
