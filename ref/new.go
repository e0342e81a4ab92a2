package ref

import (
	"reflect"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// TypeOptions 通过名称构造对象的配置
//
//	namespace: github.com/hatlonely/ormx/uid
//	type: SnowflakeGenerator
//	options:
//	  machineID: 7
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

// Convertable 可以自行转换为构造函数参数类型的配置数据
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	in           reflect.Type
	returnsError bool
}

var errorType = reflect.TypeFor[error]()

func newConstructor(fn any) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}

	t := v.Type()
	if t.NumIn() > 1 {
		return nil, errors.Errorf("constructor takes at most one options argument, got %d", t.NumIn())
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, errors.Errorf("constructor must return (obj) or (obj, error), got %d values", t.NumOut())
	}
	if t.NumOut() == 2 && !t.Out(1).Implements(errorType) {
		return nil, errors.Errorf("second return value of constructor must be error, got %s", t.Out(1))
	}

	c := &constructor{fn: v, returnsError: t.NumOut() == 2}
	if t.NumIn() == 1 {
		c.in = t.In(0)
	}
	return c, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.in != nil {
		arg, err := c.convert(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// convert 将 options 转换为构造函数的参数类型
// 支持同类型直传、指针与值互转、Convertable 以及 map 通过 mapstructure 解码
func (c *constructor) convert(options any) (reflect.Value, error) {
	if options == nil {
		return reflect.Zero(c.in), nil
	}

	v := reflect.ValueOf(options)
	if v.Type().AssignableTo(c.in) {
		return v, nil
	}
	if c.in.Kind() == reflect.Pointer && v.Type().AssignableTo(c.in.Elem()) {
		p := reflect.New(c.in.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type().AssignableTo(c.in) {
		return v.Elem(), nil
	}

	target := c.in
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	p := reflect.New(target)

	if conv, ok := options.(Convertable); ok {
		if err := conv.ConvertTo(p.Interface()); err != nil {
			return reflect.Value{}, errors.WithMessagef(err, "convert options to %s failed", c.in)
		}
	} else if err := Decode(options, p.Interface()); err != nil {
		return reflect.Value{}, errors.WithMessagef(err, "decode options to %s failed", c.in)
	}

	if c.in.Kind() == reflect.Pointer {
		return p, nil
	}
	return p.Elem(), nil
}

// Decode 使用 cfg 标签将 map 等弱类型数据解码到 out
func Decode(in any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "cfg",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Wrap(err, "mapstructure.NewDecoder failed")
	}
	return errors.Wrap(decoder.Decode(in), "mapstructure.Decode failed")
}

var registry sync.Map // namespace:type -> *constructor

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一名称不允许注册两个不同的函数
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s failed", key(namespace, typ))
	}

	if old, loaded := registry.LoadOrStore(key(namespace, typ), c); loaded {
		if old.(*constructor).fn.Pointer() != c.fn.Pointer() {
			return errors.Errorf("constructor for %s already registered with a different function", key(namespace, typ))
		}
	}
	return nil
}

// RegisterT 以类型的包路径与类型名注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 按名称构造对象
func New(namespace string, typ string, options any) (any, error) {
	v, ok := registry.Load(key(namespace, typ))
	if !ok {
		return nil, errors.Errorf("constructor not found for %s", key(namespace, typ))
	}
	return v.(*constructor).call(options)
}

// NewT 以类型名构造对象并断言为 T
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("constructor for %s returned %T", key(namespace, typ), obj)
	}
	return t, nil
}

// NewWithOptions 按 TypeOptions 构造对象并断言为接口 I
func NewWithOptions[I any](options *TypeOptions) (I, error) {
	var zero I
	if options == nil {
		return zero, errors.New("type options is nil")
	}
	obj, err := New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return zero, err
	}
	i, ok := obj.(I)
	if !ok {
		return zero, errors.Errorf("%s is not a %s", key(options.Namespace, options.Type), reflect.TypeFor[I]())
	}
	return i, nil
}

func typeKey[T any]() (string, string, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for %s", t)
	}
	return t.PkgPath(), t.Name(), nil
}
