// Package jobs provides scheduled background tasks for the fulfillment service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
// Schedules use the six-field format with seconds.
//
// # Available Jobs
//
// 1. OutboxRelayJob - publishes pending outbox events to the event broker
// 2. HandoverCodeExpiryJob - discards handover codes older than HANDOVER_CODE_TTL;
// only scheduled when the TTL is set
//
// # Usage
//
//	relay, err := jobs.NewOutboxRelayJob(relayHandler, 100, "*/2 * * * * *", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	jobManager := jobs.NewJobManager(relay)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Jobs log failures and carry on with the next tick. Events that failed to
// publish stay pending until outbox.MaxAttempts is reached.
package jobs
