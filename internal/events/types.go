package events

import "fmt"

// EventType is the closed set of event kinds the pipeline understands.
// Request types follow <NOUN>_<VERB>_REQUESTED, outcomes <NOUN>_<VERB>_{SUCCESS|FAILED}.
type EventType string

const (
	CustomerCreateRequested EventType = "CUSTOMER_CREATE_REQUESTED"
	CustomerUpdateRequested EventType = "CUSTOMER_UPDATE_REQUESTED"
	CustomerDeleteRequested EventType = "CUSTOMER_DELETE_REQUESTED"

	ItemCreateRequested         EventType = "ITEM_CREATE_REQUESTED"
	ItemUpdateRequested         EventType = "ITEM_UPDATE_REQUESTED"
	ItemDeleteRequested         EventType = "ITEM_DELETE_REQUESTED"
	ItemQuantityAdjustRequested EventType = "ITEM_QUANTITY_ADJUST_REQUESTED"

	OrderCreateRequested EventType = "ORDER_CREATE_REQUESTED"
	OrderUpdateRequested EventType = "ORDER_UPDATE_REQUESTED"
	OrderCancelRequested EventType = "ORDER_CANCEL_REQUESTED"
)

const (
	CustomerCreateSuccess EventType = "CUSTOMER_CREATE_SUCCESS"
	CustomerCreateFailed  EventType = "CUSTOMER_CREATE_FAILED"
	CustomerUpdateSuccess EventType = "CUSTOMER_UPDATE_SUCCESS"
	CustomerUpdateFailed  EventType = "CUSTOMER_UPDATE_FAILED"
	CustomerDeleteSuccess EventType = "CUSTOMER_DELETE_SUCCESS"
	CustomerDeleteFailed  EventType = "CUSTOMER_DELETE_FAILED"

	ItemCreateSuccess         EventType = "ITEM_CREATE_SUCCESS"
	ItemCreateFailed          EventType = "ITEM_CREATE_FAILED"
	ItemUpdateSuccess         EventType = "ITEM_UPDATE_SUCCESS"
	ItemUpdateFailed          EventType = "ITEM_UPDATE_FAILED"
	ItemDeleteSuccess         EventType = "ITEM_DELETE_SUCCESS"
	ItemDeleteFailed          EventType = "ITEM_DELETE_FAILED"
	ItemQuantityAdjustSuccess EventType = "ITEM_QUANTITY_ADJUST_SUCCESS"
	ItemQuantityAdjustFailed  EventType = "ITEM_QUANTITY_ADJUST_FAILED"

	OrderCreateSuccess EventType = "ORDER_CREATE_SUCCESS"
	OrderCreateFailed  EventType = "ORDER_CREATE_FAILED"
	OrderUpdateSuccess EventType = "ORDER_UPDATE_SUCCESS"
	OrderUpdateFailed  EventType = "ORDER_UPDATE_FAILED"
	OrderCancelSuccess EventType = "ORDER_CANCEL_SUCCESS"
	OrderCancelFailed  EventType = "ORDER_CANCEL_FAILED"
)

// Topic names are fixed; topics are provisioned once at startup and never
// deleted at runtime. Every request topic has exactly one paired outcome topic.
const (
	TopicCustomerEvents = "customer-events"
	TopicItemEvents     = "item-events"
	TopicOrderEvents    = "order-events"

	TopicCustomerUpdates = "customer-updates"
	TopicItemUpdates     = "item-updates"
	TopicOrderUpdates    = "order-updates"
)

func RequestTopics() []string {
	return []string{TopicCustomerEvents, TopicItemEvents, TopicOrderEvents}
}

func OutcomeTopics() []string {
	return []string{TopicCustomerUpdates, TopicItemUpdates, TopicOrderUpdates}
}

func AllTopics() []string {
	return append(RequestTopics(), OutcomeTopics()...)
}

// OutcomeTopicFor maps a request topic to its paired outcome topic.
func OutcomeTopicFor(requestTopic string) (string, error) {
	switch requestTopic {
	case TopicCustomerEvents:
		return TopicCustomerUpdates, nil
	case TopicItemEvents:
		return TopicItemUpdates, nil
	case TopicOrderEvents:
		return TopicOrderUpdates, nil
	}
	return "", fmt.Errorf("no outcome topic paired with %q", requestTopic)
}

// RequestTopicFor maps a request event type to the topic it is published on.
func RequestTopicFor(t EventType) (string, error) {
	switch t {
	case CustomerCreateRequested, CustomerUpdateRequested, CustomerDeleteRequested:
		return TopicCustomerEvents, nil
	case ItemCreateRequested, ItemUpdateRequested, ItemDeleteRequested, ItemQuantityAdjustRequested:
		return TopicItemEvents, nil
	case OrderCreateRequested, OrderUpdateRequested, OrderCancelRequested:
		return TopicOrderEvents, nil
	}
	return "", fmt.Errorf("%q is not a request event type", t)
}

// OutcomeTypeFor returns the success or failure outcome type paired with a
// request type. The second return is false for unrecognized request types.
func OutcomeTypeFor(request EventType, success bool) (EventType, bool) {
	pair, ok := outcomePairs[request]
	if !ok {
		return "", false
	}
	if success {
		return pair.success, true
	}
	return pair.failure, true
}

var outcomePairs = map[EventType]struct{ success, failure EventType }{
	CustomerCreateRequested:     {CustomerCreateSuccess, CustomerCreateFailed},
	CustomerUpdateRequested:     {CustomerUpdateSuccess, CustomerUpdateFailed},
	CustomerDeleteRequested:     {CustomerDeleteSuccess, CustomerDeleteFailed},
	ItemCreateRequested:         {ItemCreateSuccess, ItemCreateFailed},
	ItemUpdateRequested:         {ItemUpdateSuccess, ItemUpdateFailed},
	ItemDeleteRequested:         {ItemDeleteSuccess, ItemDeleteFailed},
	ItemQuantityAdjustRequested: {ItemQuantityAdjustSuccess, ItemQuantityAdjustFailed},
	OrderCreateRequested:        {OrderCreateSuccess, OrderCreateFailed},
	OrderUpdateRequested:        {OrderUpdateSuccess, OrderUpdateFailed},
	OrderCancelRequested:        {OrderCancelSuccess, OrderCancelFailed},
}
