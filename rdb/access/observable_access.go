package access

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/ormx/log"
	"github.com/hatlonely/ormx/log/logger"
	"github.com/hatlonely/ormx/rdb/dialect"
	"github.com/hatlonely/ormx/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableOptions struct {
	// Logger 日志记录器配置，为空时使用默认日志
	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志与 span 的 component
	Name string `cfg:"name" def:"rdb"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	rowsHistogram     *prometheus.HistogramVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	metrics := &ObservableMetrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of data access operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of data access operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active data access operations",
			},
			[]string{"operation"},
		),
		rowsHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_rows",
				Help:    "Rows returned or affected per statement",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
	}

	if err := register(registerer, &metrics.operationCounter); err != nil {
		return nil, err
	}
	if err := register(registerer, &metrics.operationDuration); err != nil {
		return nil, err
	}
	if err := register(registerer, &metrics.activeOperations); err != nil {
		return nil, err
	}
	if err := register(registerer, &metrics.rowsHistogram); err != nil {
		return nil, err
	}
	return metrics, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c *C) error {
	err := registerer.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			*c = existing
			return nil
		}
	}
	return errors.Wrap(err, "prometheus.Register failed")
}

// Observer 为 DataAccess 附加指标、日志与追踪，可被多个实例共享
type Observer struct {
	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObserverWithOptions(options *ObservableOptions) (*Observer, error) {
	return NewObserver(options, prometheus.DefaultRegisterer)
}

func NewObserver(options *ObservableOptions, registerer prometheus.Registerer) (*Observer, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	obs := &Observer{name: options.Name}
	if obs.name == "" {
		obs.name = "rdb"
	}

	if options.EnableLogging {
		obs.logger = log.Default()
		if options.Logger != nil {
			l, err := log.NewLoggerWithOptions(options.Logger)
			if err != nil {
				return nil, errors.WithMessage(err, "failed to create logger")
			}
			obs.logger = l
		}
		obs.logger = obs.logger.WithGroup("dataAccess")
	}

	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(obs.name, registerer)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("rdb.%s", obs.name))
	}

	return obs, nil
}

// Wrap 返回带观测能力的 DataAccess
func (o *Observer) Wrap(da DataAccess) *ObservableDataAccess {
	return &ObservableDataAccess{DataAccess: da, obs: o}
}

// ObservableDataAccess 装饰器，为任何 DataAccess 添加观测能力
type ObservableDataAccess struct {
	DataAccess
	obs *Observer
}

// Unwrap 返回被包装的 DataAccess
func (a *ObservableDataAccess) Unwrap() DataAccess {
	return a.DataAccess
}

func (o *Observer) observe(ctx context.Context, operation string, text string, fn func(context.Context) (int, error)) error {
	start := time.Now()

	var span trace.Span
	if o.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", o.name),
			attribute.String("operation", operation),
		}
		if text != "" {
			attrs = append(attrs, attribute.String("db.statement", text))
		}
		ctx, span = o.tracer.Start(ctx, fmt.Sprintf("rdb.%s", operation), trace.WithAttributes(attrs...))
		defer span.End()
	}

	if o.metrics != nil {
		o.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer o.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	rows, err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		o.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
		if err == nil && rows >= 0 {
			o.metrics.rowsHistogram.WithLabelValues(operation).Observe(float64(rows))
		}
	}

	if o.logger != nil {
		if err != nil {
			o.logger.ErrorContext(ctx, "data access operation failed",
				"component", o.name,
				"operation", operation,
				"statement", text,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			o.logger.DebugContext(ctx, "data access operation completed",
				"component", o.name,
				"operation", operation,
				"statement", text,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (a *ObservableDataAccess) Open(ctx context.Context) error {
	return a.obs.observe(ctx, "open", "", func(ctx context.Context) (int, error) {
		return -1, a.DataAccess.Open(ctx)
	})
}

func (a *ObservableDataAccess) Close() error {
	return a.obs.observe(context.Background(), "close", "", func(context.Context) (int, error) {
		return -1, a.DataAccess.Close()
	})
}

func (a *ObservableDataAccess) Begin(ctx context.Context) error {
	return a.obs.observe(ctx, "begin", "", func(ctx context.Context) (int, error) {
		return -1, a.DataAccess.Begin(ctx)
	})
}

func (a *ObservableDataAccess) Commit() error {
	return a.obs.observe(context.Background(), "commit", "", func(context.Context) (int, error) {
		return -1, a.DataAccess.Commit()
	})
}

func (a *ObservableDataAccess) Rollback() error {
	return a.obs.observe(context.Background(), "rollback", "", func(context.Context) (int, error) {
		return -1, a.DataAccess.Rollback()
	})
}

func (a *ObservableDataAccess) Execute(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (int64, error) {
	var affected int64
	err := a.obs.observe(ctx, "execute", text, func(ctx context.Context) (n int, err error) {
		affected, err = a.DataAccess.Execute(ctx, typ, text, params...)
		return int(affected), err
	})
	return affected, err
}

func (a *ObservableDataAccess) ExecuteScalar(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (any, error) {
	var v any
	err := a.obs.observe(ctx, "execute_scalar", text, func(ctx context.Context) (n int, err error) {
		v, err = a.DataAccess.ExecuteScalar(ctx, typ, text, params...)
		return -1, err
	})
	return v, err
}

func (a *ObservableDataAccess) ExecuteTable(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) (*Table, error) {
	var t *Table
	err := a.obs.observe(ctx, "execute_table", text, func(ctx context.Context) (n int, err error) {
		t, err = a.DataAccess.ExecuteTable(ctx, typ, text, params...)
		return t.Len(), err
	})
	return t, err
}

func (a *ObservableDataAccess) ExecuteSet(ctx context.Context, typ CommandType, text string, params ...dialect.Parameter) ([]*Table, error) {
	var ts []*Table
	err := a.obs.observe(ctx, "execute_set", text, func(ctx context.Context) (n int, err error) {
		ts, err = a.DataAccess.ExecuteSet(ctx, typ, text, params...)
		for _, t := range ts {
			n += t.Len()
		}
		return n, err
	})
	return ts, err
}
