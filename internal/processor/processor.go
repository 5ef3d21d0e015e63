package processor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"ordercore/internal/app/customers"
	"ordercore/internal/app/items"
	"ordercore/internal/app/orders"
	"ordercore/internal/cache"
	"ordercore/internal/domain"
	"ordercore/internal/events"
)

// Broker is the slice of the Kafka client the processor needs.
type Broker interface {
	Publish(ctx context.Context, topic string, env events.Envelope) error
	Subscribe(topic string, handler func(ctx context.Context, env events.Envelope) error) error
	StartConsuming(ctx context.Context) error
}

// Invalidator is the slice of the cache the processor needs for
// write-through invalidation.
type Invalidator interface {
	InvalidateEntity(ctx context.Context, entityType, id string)
}

var errUnknownEventType = errors.New("unknown event type")

// entityRef names one cache entity affected by a successful mutation.
type entityRef struct {
	entityType string
	id         string
}

// Processor is the single event processor per process: it consumes every
// request topic, dispatches each recognized event to exactly one domain
// service call, invalidates the cache after the store commit, and publishes
// exactly one outcome event per recognized request. Per-topic ordering is the
// broker's responsibility; the processor only exploits it.
type Processor struct {
	broker    Broker
	cache     Invalidator
	customers customers.CustomerService
	items     items.ItemService
	orders    orders.OrderService
	logger    *zap.Logger
	running   atomic.Bool
}

func New(
	broker Broker,
	invalidator Invalidator,
	customerService customers.CustomerService,
	itemService items.ItemService,
	orderService orders.OrderService,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		broker:    broker,
		cache:     invalidator,
		customers: customerService,
		items:     itemService,
		orders:    orderService,
		logger:    logger,
	}
}

// Start subscribes every request topic and begins consuming.
func (p *Processor) Start(ctx context.Context) error {
	subscriptions := map[string]func(ctx context.Context, env events.Envelope) error{
		events.TopicCustomerEvents: p.handleCustomerEvent,
		events.TopicItemEvents:     p.handleItemEvent,
		events.TopicOrderEvents:    p.handleOrderEvent,
	}
	for topic, handler := range subscriptions {
		if err := p.broker.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	if err := p.broker.StartConsuming(ctx); err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	p.running.Store(true)
	p.logger.Info("Event processor started",
		zap.Strings("topics", events.RequestTopics()))
	return nil
}

func (p *Processor) Stop() {
	p.running.Store(false)
}

func (p *Processor) Running() bool {
	return p.running.Load()
}

func (p *Processor) handleCustomerEvent(ctx context.Context, env events.Envelope) error {
	return p.process(ctx, events.TopicCustomerEvents, env, p.dispatchCustomer)
}

func (p *Processor) handleItemEvent(ctx context.Context, env events.Envelope) error {
	return p.process(ctx, events.TopicItemEvents, env, p.dispatchItem)
}

func (p *Processor) handleOrderEvent(ctx context.Context, env events.Envelope) error {
	return p.process(ctx, events.TopicOrderEvents, env, p.dispatchOrder)
}

type dispatchFunc func(ctx context.Context, env events.Envelope) (any, []entityRef, error)

// process is the outermost wrapper around every handler: side effects are
// strictly ordered (domain call, then cache invalidation, then outcome
// publish) and no error or panic from the domain layer ever escapes without
// an outcome event. Unknown event types are logged and dropped with no
// outcome: they are not failures of a known request.
func (p *Processor) process(ctx context.Context, topic string, env events.Envelope, dispatch dispatchFunc) error {
	result, refs, err := p.safeDispatch(ctx, env, dispatch)
	if errors.Is(err, errUnknownEventType) {
		p.logger.Warn("Dropping event with unknown type",
			zap.String("topic", topic),
			zap.String("event_id", env.EventID),
			zap.String("event_type", string(env.EventType)))
		return nil
	}

	if err == nil {
		for _, ref := range refs {
			p.cache.InvalidateEntity(ctx, ref.entityType, ref.id)
		}
	} else {
		p.logger.Warn("Domain operation failed, emitting failure outcome",
			zap.String("event_id", env.EventID),
			zap.String("event_type", string(env.EventType)),
			zap.String("correlation_id", env.Metadata.CorrelationID),
			zap.Error(err))
	}

	outcomeTopic, topicErr := events.OutcomeTopicFor(topic)
	if topicErr != nil {
		return topicErr
	}
	outcome, buildErr := events.NewOutcomeEnvelope(env, result, err)
	if buildErr != nil {
		p.logger.Error("Failed to build outcome envelope",
			zap.String("event_id", env.EventID),
			zap.Error(buildErr))
		return buildErr
	}
	if pubErr := p.broker.Publish(ctx, outcomeTopic, outcome); pubErr != nil {
		p.logger.Error("Failed to publish outcome event",
			zap.String("event_id", env.EventID),
			zap.String("outcome_topic", outcomeTopic),
			zap.Error(pubErr))
		return pubErr
	}

	p.logger.Debug("Outcome published",
		zap.String("request_event_id", env.EventID),
		zap.String("outcome_event_id", outcome.EventID),
		zap.String("outcome_type", string(outcome.EventType)),
		zap.Bool("success", err == nil))
	return nil
}

// safeDispatch converts panics from dispatch into plain errors so a
// programming error still yields exactly one failure outcome.
func (p *Processor) safeDispatch(ctx context.Context, env events.Envelope, dispatch dispatchFunc) (result any, refs []entityRef, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Recovered panic in event handler",
				zap.String("event_id", env.EventID),
				zap.String("event_type", string(env.EventType)),
				zap.String("correlation_id", env.Metadata.CorrelationID),
				zap.Any("panic", r))
			result, refs = nil, nil
			err = fmt.Errorf("internal error processing %s", env.EventType)
		}
	}()
	return dispatch(ctx, env)
}

func (p *Processor) dispatchCustomer(ctx context.Context, env events.Envelope) (any, []entityRef, error) {
	switch env.EventType {
	case events.CustomerCreateRequested:
		payload, err := events.DecodePayload[events.CreateCustomerPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.customers.Create(ctx, payload)
		return res, []entityRef{{cache.EntityCustomer, payload.ID}}, err

	case events.CustomerUpdateRequested:
		payload, err := events.DecodePayload[events.UpdateCustomerPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.customers.Update(ctx, payload)
		return res, []entityRef{{cache.EntityCustomer, payload.ID}}, err

	case events.CustomerDeleteRequested:
		payload, err := events.DecodePayload[events.DeleteCustomerPayload](env)
		if err != nil {
			return nil, nil, err
		}
		itemIDs, err := p.customers.Delete(ctx, payload.ID)
		refs := []entityRef{{cache.EntityCustomer, payload.ID}}
		// The delete took the customer's items with it, so their cache
		// entries are stale too.
		for _, itemID := range itemIDs {
			refs = append(refs, entityRef{cache.EntityItem, itemID})
		}
		return map[string]any{"id": payload.ID, "deletedItemIds": itemIDs}, refs, err
	}
	return nil, nil, errUnknownEventType
}

func (p *Processor) dispatchItem(ctx context.Context, env events.Envelope) (any, []entityRef, error) {
	switch env.EventType {
	case events.ItemCreateRequested:
		payload, err := events.DecodePayload[events.CreateItemPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.items.Create(ctx, payload)
		return res, []entityRef{{cache.EntityItem, payload.ID}}, err

	case events.ItemUpdateRequested:
		payload, err := events.DecodePayload[events.UpdateItemPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.items.Update(ctx, payload)
		return res, []entityRef{{cache.EntityItem, payload.ID}}, err

	case events.ItemDeleteRequested:
		payload, err := events.DecodePayload[events.DeleteItemPayload](env)
		if err != nil {
			return nil, nil, err
		}
		err = p.items.Delete(ctx, payload.ID)
		return map[string]string{"id": payload.ID}, []entityRef{{cache.EntityItem, payload.ID}}, err

	case events.ItemQuantityAdjustRequested:
		payload, err := events.DecodePayload[events.AdjustItemQuantityPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.items.AdjustQuantity(ctx, payload)
		return res, []entityRef{{cache.EntityItem, payload.ID}}, err
	}
	return nil, nil, errUnknownEventType
}

func (p *Processor) dispatchOrder(ctx context.Context, env events.Envelope) (any, []entityRef, error) {
	switch env.EventType {
	case events.OrderCreateRequested:
		payload, err := events.DecodePayload[events.CreateOrderPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.orders.Create(ctx, payload)
		refs := []entityRef{{cache.EntityOrder, payload.ID}}
		if res != nil {
			// Creation decremented stock, so the item caches are stale too.
			for _, line := range res.Items {
				refs = append(refs, entityRef{cache.EntityItem, line.ItemID})
			}
		}
		return res, refs, err

	case events.OrderUpdateRequested:
		payload, err := events.DecodePayload[events.UpdateOrderPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.orders.Update(ctx, payload)
		refs := []entityRef{{cache.EntityOrder, payload.ID}}
		if res != nil && res.Status == string(domain.OrderStatusCancelled) {
			// An update routed through cancellation restored stock.
			for _, line := range res.Items {
				refs = append(refs, entityRef{cache.EntityItem, line.ItemID})
			}
		}
		return res, refs, err

	case events.OrderCancelRequested:
		payload, err := events.DecodePayload[events.CancelOrderPayload](env)
		if err != nil {
			return nil, nil, err
		}
		res, err := p.orders.Cancel(ctx, payload.ID)
		refs := []entityRef{{cache.EntityOrder, payload.ID}}
		if res != nil {
			// Compensation restored stock on every line.
			for _, line := range res.Items {
				refs = append(refs, entityRef{cache.EntityItem, line.ItemID})
			}
		}
		return res, refs, err
	}
	return nil, nil, errUnknownEventType
}
