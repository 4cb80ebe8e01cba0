package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
)

// CallbackHandler receives the subscriber-side delivery acknowledgement
// of spec §4.5.2: "{event_id, service_name, status, message?}", posted by
// an out-of-process subscriber back to the publisher. It is protected by
// the shared PUBSUB_NOTIFY_API_KEY rather than tenant auth, since the
// caller is infrastructure, not an authenticated tenant principal.
type CallbackHandler struct {
	hub *app.Hub
}

func NewCallbackHandler(hub *app.Hub) *CallbackHandler {
	return &CallbackHandler{hub: hub}
}

type deliveryCallbackBody struct {
	EventID     string                         `json:"eventId"`
	ServiceName string                         `json:"serviceName"`
	Status      domain.DeliveryServiceStatus   `json:"status"`
	Message     string                         `json:"message,omitempty"`
}

// MarkDelivered handles POST /api/v1/internal/delivery-callback.
func (h *CallbackHandler) MarkDelivered(c echo.Context) error {
	var body deliveryCallbackBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "markDelivered", domain.ErrInvalidInput)
	}
	err := h.hub.DeliveryCallback().Callback()(c.Request().Context(), body.EventID, body.ServiceName, body.Status, body.Message)
	if err != nil {
		return Error(c, "markDelivered", err)
	}
	return OK(c, "markDelivered", nil)
}

// Health handles GET /healthz.
func Health(c echo.Context) error {
	return OK(c, "health", map[string]string{"status": "ok"})
}
