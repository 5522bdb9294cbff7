package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/freight"
	"github.com/xenking/order-pipeline/internal/domain/product"
	"github.com/xenking/order-pipeline/internal/messaging"
)

const instrumentationName = "github.com/xenking/order-pipeline/internal/domain/order"

// Result is the outcome of a placed order. The order is committed even when
// Inventory is non-nil; Inventory then holds a *ReconciliationError.
type Result struct {
	Order     *Order
	Inventory error
}

// Service runs the order creation pipeline: price, check, persist, reconcile.
type Service struct {
	engine     *Engine
	orders     Repository
	reconciler *Reconciler
	events     messaging.Publisher
	runner     Runner

	tracer     trace.Tracer
	placed     metric.Int64Counter
	rejected   metric.Int64Counter
	reconFails metric.Int64Counter
	duration   metric.Float64Histogram
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	events         messaging.Publisher
	runner         Runner
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithPublisher publishes an order-created event after each commit.
func WithPublisher(p messaging.Publisher) Option {
	return func(o *serviceOptions) { o.events = p }
}

// WithRunner offloads catalog reads and the order transaction to run.
func WithRunner(run Runner) Option {
	return func(o *serviceOptions) { o.runner = run }
}

// WithMeterProvider sets the meter provider for pipeline metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for pipeline spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// NewService creates an order Service.
func NewService(
	catalog product.Catalog,
	table *freight.Table,
	orders Repository,
	reconciler *Reconciler,
	opts ...Option,
) (*Service, error) {
	o := serviceOptions{
		events:         messaging.Nop{},
		runner:         inlineRunner{},
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		engine:     NewEngine(pooledCatalog{catalog: catalog, runner: o.runner}, table),
		orders:     orders,
		reconciler: reconciler,
		events:     o.events,
		runner:     o.runner,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
	}

	meter := o.meterProvider.Meter(instrumentationName)
	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed")); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if s.rejected, err = meter.Int64Counter("orders.rejected",
		metric.WithDescription("Orders rejected before commit, by error kind")); err != nil {
		return nil, errors.Wrap(err, "orders.rejected")
	}
	if s.reconFails, err = meter.Int64Counter("orders.reconciliation_failures",
		metric.WithDescription("Line items whose inventory adjustment failed")); err != nil {
		return nil, errors.Wrap(err, "orders.reconciliation_failures")
	}
	if s.duration, err = meter.Float64Histogram("orders.place_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Order pipeline duration")); err != nil {
		return nil, errors.Wrap(err, "orders.place_duration")
	}
	return s, nil
}

// PlaceOrder prices the cart, persists the order and reconciles inventory.
//
// Validation errors return before anything is written. Once the order is
// committed PlaceOrder always returns it; a partial inventory adjustment is
// reported in Result.Inventory rather than as an error.
func (s *Service) PlaceOrder(ctx context.Context, cart Cart) (_ *Result, rerr error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(
				attribute.String("kind", KindOf(rerr).String()),
			))
		}
		span.End()
		s.duration.Record(ctx, time.Since(start).Seconds())
	}()
	lg := zctx.From(ctx)

	draft, err := s.price(ctx, cart)
	if err != nil {
		return nil, err
	}

	o, err := s.persist(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.placed.Add(ctx, 1)
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.Int("items", len(o.Items)),
		zap.String("net", o.Net.StringFixed(2)),
	)

	res := &Result{Order: o}
	if err := s.reconcile(ctx, o); err != nil {
		res.Inventory = err
	}
	s.publish(ctx, o)

	return res, nil
}

func (s *Service) price(ctx context.Context, cart Cart) (*Draft, error) {
	ctx, span := s.tracer.Start(ctx, "order.Price")
	defer span.End()

	draft, err := s.engine.Price(ctx, cart)
	if err != nil {
		return nil, err
	}
	if err := checkDraft(ctx, draft); err != nil {
		return nil, errors.Wrap(err, "check draft")
	}
	return draft, nil
}

func (s *Service) persist(ctx context.Context, draft *Draft) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Persist")
	defer span.End()

	var o *Order
	err := s.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.Create(ctx, draft)
		return err
	})
	if err != nil {
		if KindOf(err) == KindUnknown {
			return nil, PersistenceFailure(err)
		}
		return nil, err
	}
	return o, nil
}

func (s *Service) reconcile(ctx context.Context, o *Order) error {
	ctx, span := s.tracer.Start(ctx, "order.Reconcile")
	defer span.End()

	err := s.reconciler.Reconcile(ctx, o)
	var re *ReconciliationError
	if errors.As(err, &re) {
		span.RecordError(err)
		s.reconFails.Add(ctx, int64(len(re.Failures)))
	}
	return err
}

func (s *Service) publish(ctx context.Context, o *Order) {
	if err := s.events.PublishEvent(context.WithoutCancel(ctx), messaging.TopicOrderCreated, o.ID, o); err != nil {
		zctx.From(ctx).Warn("Publish order created event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// pooledCatalog runs catalog reads on the service runner.
type pooledCatalog struct {
	catalog product.Catalog
	runner  Runner
}

func (c pooledCatalog) GetBySKUs(ctx context.Context, skus []string) ([]product.Product, error) {
	var out []product.Product
	err := c.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.catalog.GetBySKUs(ctx, skus)
		return err
	})
	return out, err
}
