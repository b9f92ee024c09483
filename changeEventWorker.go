package main

import (
	"context"
	"encoding/json"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/workflow"
)

// RunChangeEventWorker consumes change notifications from Pub/Sub and feeds
// them to the reconciliation service. Every event, whatever the collection or
// action, schedules a full recompute for its business; the Refresher collapses
// bursts into a single run.
func RunChangeEventWorker(ctx context.Context, service *workflow.Service) error {
	logger := config.GetLogger()

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	callback := func(ctx context.Context, msg *pubsub.Message) {
		m := config.ChangeEventMessage{}
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			config.LogError(logger, "changeEventWorker.go", "RunChangeEventWorker", "Unmarshaling pubsub message", msg.Data, err)
			// Poisoned payload: ack to avoid redelivery loops.
			msg.Ack()
			return
		}
		if m.BusinessId == "" {
			msg.Ack()
			return
		}
		service.NotifyChange(m.BusinessId)
		msg.Ack()
	}

	return sub.Receive(ctx, callback)
}
