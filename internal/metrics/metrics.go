// Package metrics exposes the order engine counters on an OpenTelemetry
// meter provider.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storefront-be/internal/metrics"

// Recorder owns the instruments. The zero value is not usable; call New.
type Recorder struct {
	orders       metric.Int64Counter
	declines     metric.Int64Counter
	stockouts    metric.Int64Counter
	lowStock     metric.Int64Counter
	returns      metric.Int64Counter
	ledgerAmount metric.Int64Counter
	opDuration   metric.Float64Histogram
}

// New builds a recorder from the given provider, falling back to the global one.
func New(provider metric.MeterProvider) (*Recorder, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		r   Recorder
		err error
	)
	if r.orders, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created, by entry point")); err != nil {
		return nil, err
	}
	if r.declines, err = meter.Int64Counter("payments.declined",
		metric.WithDescription("Gateway authorizations declined")); err != nil {
		return nil, err
	}
	if r.stockouts, err = meter.Int64Counter("inventory.reservation_failures",
		metric.WithDescription("Checkouts rejected for insufficient stock")); err != nil {
		return nil, err
	}
	if r.lowStock, err = meter.Int64Counter("inventory.low_stock",
		metric.WithDescription("Reservations leaving stock at or below the critical threshold")); err != nil {
		return nil, err
	}
	if r.returns, err = meter.Int64Counter("returns.resolved",
		metric.WithDescription("Return requests resolved, by outcome")); err != nil {
		return nil, err
	}
	if r.ledgerAmount, err = meter.Int64Counter("ledger.amount",
		metric.WithDescription("Amount appended to the ledger in minor units, by type"),
		metric.WithUnit("{minor_unit}")); err != nil {
		return nil, err
	}
	if r.opDuration, err = meter.Float64Histogram("engine.operation.duration",
		metric.WithDescription("Duration of engine operations"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Recorder) OrderCreated(ctx context.Context, entryPoint string) {
	if r == nil {
		return
	}
	r.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("entry_point", entryPoint)))
}

func (r *Recorder) PaymentDeclined(ctx context.Context, status string) {
	if r == nil {
		return
	}
	r.declines.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (r *Recorder) ReservationFailed(ctx context.Context) {
	if r == nil {
		return
	}
	r.stockouts.Add(ctx, 1)
}

func (r *Recorder) LowStock(ctx context.Context, productID uint) {
	if r == nil {
		return
	}
	r.lowStock.Add(ctx, 1, metric.WithAttributes(attribute.Int64("product_id", int64(productID))))
}

func (r *Recorder) ReturnResolved(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.returns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *Recorder) LedgerAppended(ctx context.Context, txType string, amount int64) {
	if r == nil {
		return
	}
	r.ledgerAmount.Add(ctx, amount, metric.WithAttributes(attribute.String("type", txType)))
}

// Timer measures one operation; call Stop with the outcome.
type Timer struct {
	rec   *Recorder
	op    string
	start time.Time
}

func (r *Recorder) StartTimer(op string) *Timer {
	return &Timer{rec: r, op: op, start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) Stop(ctx context.Context, err error) {
	if t == nil || t.rec == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.rec.opDuration.Record(ctx, t.Duration().Seconds(), metric.WithAttributes(
		attribute.String("operation", t.op),
		attribute.String("outcome", outcome),
	))
}
