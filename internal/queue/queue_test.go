package queue

import (
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/config"
	"github.com/dujiao-next/mall/internal/events"
	"github.com/dujiao-next/mall/internal/models"
)

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueOrderClose(OrderClosePayload{OrderNo: "A101"}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestOrderCloseTaskRoundTrip(t *testing.T) {
	task, err := NewOrderCloseTask(OrderClosePayload{OrderNo: "A101"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskOrderClose {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	payload, err := ParseOrderClosePayload(task.Payload())
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.OrderNo != "A101" {
		t.Fatalf("unexpected order no: %s", payload.OrderNo)
	}
	if OrderCloseTaskID("A101") != "order:close:A101" {
		t.Fatalf("unexpected task id: %s", OrderCloseTaskID("A101"))
	}
}

func TestEventPublishTaskKeepsEventID(t *testing.T) {
	evt := events.OrderPaid(&models.Order{OrderNo: "A100"})
	task, err := NewEventPublishTask(EventPublishPayload{Event: evt})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	payload, err := ParseEventPublishPayload(task.Payload())
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.Event.ID != evt.ID || payload.Event.Name != evt.Name {
		t.Fatalf("unexpected event: %+v", payload.Event)
	}
}

func TestBuildServerConfig(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380, DB: 2, Concurrency: 4})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 4 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[CriticalQueue] != 1 {
		t.Fatalf("critical queue should be registered by default: %v", cfg.Queues)
	}
}
