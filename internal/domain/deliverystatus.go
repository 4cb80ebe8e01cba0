package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryServiceStatus is the per-subscriber state within a DeliveryStatus.
type DeliveryServiceStatus string

const (
	ServiceStatusPending   DeliveryServiceStatus = "pending"
	ServiceStatusDelivered DeliveryServiceStatus = "delivered"
	ServiceStatusFailed    DeliveryServiceStatus = "failed"
)

// DeliveryOverallStatus summarizes ServiceDelivery entries.
type DeliveryOverallStatus string

const (
	DeliveryStatusPublished           DeliveryOverallStatus = "published"
	DeliveryStatusPartiallyDelivered  DeliveryOverallStatus = "partially_delivered"
	DeliveryStatusDelivered           DeliveryOverallStatus = "delivered"
	DeliveryStatusFailed              DeliveryOverallStatus = "failed"
)

// ServiceDelivery tracks one subscriber's receipt of a published event.
type ServiceDelivery struct {
	ServiceName string
	Status      DeliveryServiceStatus
	ReceivedAt  *time.Time
	Message     string
}

// DeliveryStatus is written once per published event and updated as
// subscriber callbacks arrive; see internal/eventbus.
type DeliveryStatus struct {
	EventID       uuid.UUID
	Topic         string
	Payload       []byte // raw JSON, replayed verbatim by the republisher
	PublishedAt   time.Time
	Services      []ServiceDelivery
	Status        DeliveryOverallStatus
	LastUpdatedAt time.Time
}

// Recompute derives the overall Status from the current Services slice,
// per spec §4.5.2: all delivered -> delivered; any failed -> partially
// delivered; otherwise remains published (some still pending).
func (d *DeliveryStatus) Recompute() {
	allDelivered := true
	anyFailed := false
	for _, s := range d.Services {
		switch s.Status {
		case ServiceStatusDelivered:
		case ServiceStatusFailed:
			anyFailed = true
			allDelivered = false
		default:
			allDelivered = false
		}
	}
	switch {
	case allDelivered:
		d.Status = DeliveryStatusDelivered
	case anyFailed:
		d.Status = DeliveryStatusPartiallyDelivered
	default:
		d.Status = DeliveryStatusPublished
	}
}

// ServiceIndex returns the index of the named subscriber's entry, or -1.
func (d *DeliveryStatus) ServiceIndex(name string) int {
	for i := range d.Services {
		if d.Services[i].ServiceName == name {
			return i
		}
	}
	return -1
}
