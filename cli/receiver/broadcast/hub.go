package broadcast

import (
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

// Hub раздает принятые события сессиям, подписанным на транспорт или на общий поток.
// Доставка best-effort: переполненная очередь сессии приводит к ее отключению.
type Hub struct {
	registry *Registry
}

func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

func (h *Hub) Publish(ev types.BroadcastEvent) {
	idx := h.registry.snapshot()

	count := 0
	for _, s := range idx.global {
		count += h.deliver(s, ev)
	}
	for id, s := range idx.vehicles[ev.VehicleID] {
		if _, dup := idx.global[id]; dup {
			continue
		}
		count += h.deliver(s, ev)
	}

	log.WithFields(log.Fields{
		"vehicle_id": ev.VehicleID,
		"sessions":   count,
	}).Debug("Событие разослано")
}

func (h *Hub) deliver(s *Session, ev types.BroadcastEvent) int {
	switch s.deliver(ev) {
	case delivered:
		return 1
	case overflow:
		if h.registry.disconnect(s.ID, types.ErrSessionBackpressure) {
			log.WithField("session", s.ID).Warn("Сессия не успевает принимать события и была отключена")
		}
	}
	return 0
}
