package observability

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const spanKey = "gotemplate:span"

// GormTracing is a gorm plugin that wraps each statement in a client span
// under the span in the statement's context.
type GormTracing struct {
	tracer trace.Tracer
}

var _ gorm.Plugin = (*GormTracing)(nil)

// NewGormTracing creates the plugin. tp may be nil for the global provider.
func NewGormTracing(tp trace.TracerProvider) *GormTracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &GormTracing{tracer: tp.Tracer(defaultTracerName)}
}

func (p *GormTracing) Name() string { return "gotemplate:tracing" }

func (p *GormTracing) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("gotemplate:trace_before_create", p.before("create")),
		cb.Create().After("gorm:create").Register("gotemplate:trace_after_create", p.after),
		cb.Query().Before("gorm:query").Register("gotemplate:trace_before_query", p.before("query")),
		cb.Query().After("gorm:query").Register("gotemplate:trace_after_query", p.after),
		cb.Update().Before("gorm:update").Register("gotemplate:trace_before_update", p.before("update")),
		cb.Update().After("gorm:update").Register("gotemplate:trace_after_update", p.after),
		cb.Delete().Before("gorm:delete").Register("gotemplate:trace_before_delete", p.before("delete")),
		cb.Delete().After("gorm:delete").Register("gotemplate:trace_after_delete", p.after),
		cb.Row().Before("gorm:row").Register("gotemplate:trace_before_row", p.before("row")),
		cb.Row().After("gorm:row").Register("gotemplate:trace_after_row", p.after),
		cb.Raw().Before("gorm:raw").Register("gotemplate:trace_before_raw", p.before("raw")),
		cb.Raw().After("gorm:raw").Register("gotemplate:trace_after_raw", p.after),
	}
	return errors.Join(errs...)
}

func (p *GormTracing) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if !trace.SpanFromContext(ctx).IsRecording() {
			return
		}
		_, span := p.tracer.Start(ctx, SpanDBQuery,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.operation", op),
				attribute.String("db.sql.table", db.Statement.Table),
			))
		db.InstanceSet(spanKey, span)
	}
}

func (p *GormTracing) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()
	span.SetAttributes(
		attribute.String("db.statement", db.Statement.SQL.String()),
		attribute.Int64("db.rows_affected", db.RowsAffected),
	)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
