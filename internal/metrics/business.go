package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Business holds the domain counters. A nil *Business records nothing.
type Business struct {
	TicketsIssued     metric.Int64Counter
	RevenueTotal      metric.Float64Counter
	UnfulfilledLines  metric.Int64Counter
	UsersPurged       metric.Int64Counter
	NotificationsSent metric.Int64Counter
}

type OTLPConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	Interval    time.Duration
}

// InitProvider builds a meter provider exporting over OTLP/HTTP. With no
// endpoint it returns a noop provider and a no-op shutdown.
func InitProvider(ctx context.Context, cfg OTLPConfig) (metric.MeterProvider, func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}

func NewBusiness(mp metric.MeterProvider) (*Business, error) {
	meter := mp.Meter("github.com/Skotchmaster/storefront")

	tickets, err := meter.Int64Counter("storefront.tickets.issued",
		metric.WithDescription("Tickets created by checkout"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("tickets counter: %w", err)
	}
	revenue, err := meter.Float64Counter("storefront.revenue.total",
		metric.WithDescription("Sum of ticket amounts"))
	if err != nil {
		return nil, fmt.Errorf("revenue counter: %w", err)
	}
	unfulfilled, err := meter.Int64Counter("storefront.checkout.unfulfilled_lines",
		metric.WithDescription("Cart lines left behind for lack of stock"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("unfulfilled counter: %w", err)
	}
	purged, err := meter.Int64Counter("storefront.users.purged",
		metric.WithDescription("Accounts removed for inactivity"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("purged counter: %w", err)
	}
	notifications, err := meter.Int64Counter("storefront.notifications.sent",
		metric.WithDescription("Notification deliveries by kind and outcome"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("notifications counter: %w", err)
	}

	return &Business{
		TicketsIssued:     tickets,
		RevenueTotal:      revenue,
		UnfulfilledLines:  unfulfilled,
		UsersPurged:       purged,
		NotificationsSent: notifications,
	}, nil
}

func (b *Business) RecordCheckout(ctx context.Context, amount decimal.Decimal, purchased, unfulfilled int) {
	if b == nil {
		return
	}
	outcome := "full"
	switch {
	case purchased == 0:
		outcome = "none"
	case unfulfilled > 0:
		outcome = "partial"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	b.TicketsIssued.Add(ctx, 1, attrs)
	b.RevenueTotal.Add(ctx, amount.InexactFloat64())
	if unfulfilled > 0 {
		b.UnfulfilledLines.Add(ctx, int64(unfulfilled))
	}
}

func (b *Business) RecordPurge(ctx context.Context, n int) {
	if b == nil || n == 0 {
		return
	}
	b.UsersPurged.Add(ctx, int64(n))
}

func (b *Business) RecordNotification(ctx context.Context, kind string, ok bool) {
	if b == nil {
		return
	}
	status := "delivered"
	if !ok {
		status = "failed"
	}
	b.NotificationsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
