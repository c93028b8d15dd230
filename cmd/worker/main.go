package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"kampus-admin/core"
)

func main() {
	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "worker.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	queue := core.NewRedisQueue(redisClient)
	processor := core.NewActivityProcessor(core.NewPgActivityRepository(db))
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	workerID := core.NewWorkerID()
	hostname, _ := os.Hostname()
	log.Printf("worker started. id=%s concurrency=%d queue=%s", workerID, concurrency, core.PendingActivityKey)

	const pendingKey = core.PendingActivityKey
	const processingKey = core.ProcessingActivityKey
	visibility := core.DefaultVisibilityTimeout
	reclaimInterval := 15 * time.Second
	maxRetries := cfg.ActivityMaxRetries

	state := core.NewHeartbeatState(workerID, hostname, concurrency)
	go state.Start(ctx, redisClient)

	// The reserve step moves events into the processing set with a deadline;
	// events whose deadline passed (worker died mid-insert) go back to pending.
	go func() {
		ticker := time.NewTicker(reclaimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if events, err := queue.RequeueExpired(ctx, processingKey, pendingKey, time.Now()); err != nil {
					log.Printf("[reclaimer] requeue expired error: %v", err)
				} else if len(events) > 0 {
					log.Printf("[reclaimer] requeued %d expired events", len(events))
				}
			}
		}
	}()

	// Attempt counts live in worker memory. A reclaim by another worker resets
	// the count, which only delays the final drop of a poison event.
	var attemptsMu sync.Mutex
	attempts := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				event, err := queue.Reserve(ctx, pendingKey, processingKey, visibility)
				if err != nil {
					if errors.Is(err, redis.Nil) {
						// Queue is empty, wait before retrying to avoid CPU spinning
						select {
						case <-ctx.Done():
							return
						case <-time.After(100 * time.Millisecond):
							continue
						}
					}
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					log.Printf("[worker %d] dequeue error: %v", workerID, err)
					time.Sleep(time.Second)
					continue
				}

				state.JobStarted(event)

				procErr := processor.Process(ctx, event)
				if procErr != nil {
					if errors.Is(procErr, core.ErrMalformedActivity) {
						log.Printf("[worker %d] dropping malformed event: %v", workerID, procErr)
					} else {
						attemptsMu.Lock()
						attempts[event]++
						count := attempts[event]
						if count > maxRetries {
							delete(attempts, event)
						}
						attemptsMu.Unlock()

						if count <= maxRetries {
							if err := queue.Enqueue(ctx, pendingKey, event); err != nil {
								log.Printf("[worker %d] re-enqueue failed: %v", workerID, err)
							} else {
								log.Printf("[worker %d] event retried (attempt=%d): %v", workerID, count, procErr)
							}
						} else {
							log.Printf("[worker %d] event dropped after %d attempts: %v", workerID, maxRetries, procErr)
						}
					}
				} else {
					attemptsMu.Lock()
					delete(attempts, event)
					attemptsMu.Unlock()
				}

				if err := queue.Ack(ctx, processingKey, event); err != nil {
					log.Printf("[worker %d] ack failed: %v", workerID, err)
				}
				state.JobFinished(event, procErr)
			}
		}(i + 1)
	}

	wg.Wait()
}
