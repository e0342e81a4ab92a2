package ref

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Pool struct {
	Name    string
	Size    int
	Timeout time.Duration
}

type PoolOptions struct {
	Name    string        `cfg:"name"`
	Size    int           `cfg:"size"`
	Timeout time.Duration `cfg:"timeout"`
}

func NewPool(options *PoolOptions) (*Pool, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	if options.Name == "" {
		return nil, errors.New("name cannot be empty")
	}
	return &Pool{Name: options.Name, Size: options.Size, Timeout: options.Timeout}, nil
}

func NewDefaultPool() *Pool {
	return &Pool{Name: "default"}
}

func NewValuePool(options PoolOptions) *Pool {
	return &Pool{Name: options.Name, Size: options.Size}
}

type Named interface {
	PoolName() string
}

func (p *Pool) PoolName() string { return p.Name }

type convertable map[string]any

func (c convertable) ConvertTo(object any) error {
	return Decode(map[string]any(c), object)
}

func TestRegister(t *testing.T) {
	require.NoError(t, Register("test", "Pool", NewPool))
	// 相同函数重复注册
	assert.NoError(t, Register("test", "Pool", NewPool))
	// 不同函数
	assert.Error(t, Register("test", "Pool", NewDefaultPool))

	assert.Error(t, Register("test", "NotFunc", 1))
	assert.Error(t, Register("test", "TooManyArgs", func(a, b int) int { return a + b }))
	assert.Error(t, Register("test", "BadReturn", func() (int, int) { return 1, 2 }))
}

func TestNew(t *testing.T) {
	MustRegister("test", "NewPool", NewPool)
	MustRegister("test", "DefaultPool", NewDefaultPool)
	MustRegister("test", "ValuePool", NewValuePool)

	tests := []struct {
		name    string
		typ     string
		options any
		want    *Pool
		wantErr bool
	}{
		{"指针参数", "NewPool", &PoolOptions{Name: "a", Size: 2}, &Pool{Name: "a", Size: 2}, false},
		{"值转换为指针", "NewPool", PoolOptions{Name: "b"}, &Pool{Name: "b"}, false},
		{"map 参数", "NewPool", map[string]any{"name": "c", "size": "3", "timeout": "2s"}, &Pool{Name: "c", Size: 3, Timeout: 2 * time.Second}, false},
		{"Convertable 参数", "NewPool", convertable{"name": "d"}, &Pool{Name: "d"}, false},
		{"构造函数返回错误", "NewPool", &PoolOptions{}, nil, true},
		{"nil 参数", "NewPool", nil, nil, true},
		{"无参数", "DefaultPool", nil, &Pool{Name: "default"}, false},
		{"值类型参数", "ValuePool", map[string]any{"name": "e", "size": 1}, &Pool{Name: "e", Size: 1}, false},
		{"未注册", "Missing", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := New("test", tt.typ, tt.options)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj)
		})
	}
}

func TestNewT(t *testing.T) {
	MustRegisterT[Pool](NewPool)

	p, err := NewT[*Pool](map[string]any{"name": "typed"})
	require.NoError(t, err)
	assert.Equal(t, "typed", p.Name)

	_, err = NewT[string](nil)
	assert.Error(t, err)
}

func TestNewWithOptions(t *testing.T) {
	MustRegisterT[Pool](NewPool)

	named, err := NewWithOptions[Named](&TypeOptions{
		Namespace: "github.com/hatlonely/ormx/ref",
		Type:      "Pool",
		Options:   map[string]any{"name": "iface"},
	})
	require.NoError(t, err)
	assert.Equal(t, "iface", named.PoolName())

	_, err = NewWithOptions[error](&TypeOptions{
		Namespace: "github.com/hatlonely/ormx/ref",
		Type:      "Pool",
		Options:   map[string]any{"name": "iface"},
	})
	assert.Error(t, err)

	_, err = NewWithOptions[Named](nil)
	assert.Error(t, err)
}
