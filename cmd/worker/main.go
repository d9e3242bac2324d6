package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker drains roster transitions off the queue and appends them to the
// persistent attendance event log.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:transitions")
	}

	svc := attendance.NewService(attendance.NewRepository(db.Client))

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for transitions...")
	for msg := range messages {
		if msg.Type != queue.TransitionType {
			continue
		}

		tr, err := queue.DecodeTransition(msg)
		if err != nil {
			log.Printf("decode transition failed: %v", err)
			continue
		}

		evt, err := svc.Record(ctx, tr)
		if err != nil {
			log.Printf("record transition for %s failed: %v", tr.StudentID, err)
			continue
		}
		log.Printf("recorded %s for student %s at %s", evt.Status, evt.StudentID, evt.TimeIn)
	}

	log.Println("worker stopped")
}
