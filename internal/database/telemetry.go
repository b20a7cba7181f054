package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/lifemetrics/internal/logging"
)

const tracerName = "github.com/irfndi/lifemetrics/internal/database"

// TracedDB wraps a pool with a span and a debug log line per statement.
type TracedDB struct {
	pool   DatabasePool
	tracer trace.Tracer
	logger *logrus.Logger
}

// NewTracedDB creates a new traced database connection
func NewTracedDB(pool DatabasePool, logger *logrus.Logger) *TracedDB {
	return &TracedDB{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
}

func (db *TracedDB) start(ctx context.Context, operation, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", statementVerb(sql)),
			attribute.String("db.sql.table", statementTable(sql)),
		))
}

func (db *TracedDB) finish(span trace.Span, sql string, start time.Time, rows int64, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	logging.LogDatabaseOperation(db.logger, statementVerb(sql), statementTable(sql), time.Since(start).Milliseconds(), rows)
}

// Query executes a query that returns rows.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	ctx, span := db.start(ctx, "query", sql)
	rows, err := db.pool.Query(ctx, sql, args...)
	db.finish(span, sql, start, -1, err)
	return rows, err
}

// QueryRow executes a query that returns a single row. Scan errors surface
// to the caller, not to the span.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	ctx, span := db.start(ctx, "query_row", sql)
	row := db.pool.QueryRow(ctx, sql, args...)
	db.finish(span, sql, start, -1, nil)
	return row
}

// Exec executes a query without returning rows.
func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	ctx, span := db.start(ctx, "exec", sql)
	tag, err := db.pool.Exec(ctx, sql, args...)
	db.finish(span, sql, start, tag.RowsAffected(), err)
	return tag, err
}

// statementVerb returns the leading SQL keyword, lower-cased.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// statementTable returns the first table named after FROM, INTO or UPDATE.
func statementTable(sql string) string {
	fields := strings.Fields(strings.ToLower(sql))
	for i := 0; i+1 < len(fields); i++ {
		switch fields[i] {
		case "from", "into", "update":
			return strings.Trim(fields[i+1], "();")
		}
	}
	return ""
}
