package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/restlab/study-backend/internal/capture"
	"github.com/restlab/study-backend/internal/config"
	"github.com/restlab/study-backend/internal/db"
	"github.com/restlab/study-backend/internal/imagegen"
	"github.com/restlab/study-backend/internal/logging"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	defer logging.Sync()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, cfg.SQLitePath)
	if err != nil {
		logging.Fatalf("db connect: %v", err)
	}

	// RunJob only reads prompts and writes job/image rows; it never touches
	// sessions, so the capture service runs without a chat backend here.
	captureSvc := capture.NewService(capture.NewRepo(gdb), nil)

	gen := imagegen.NewReplicateClient(cfg.ReplicateBaseURL, cfg.ReplicateToken, cfg.ReplicateModel)
	svc := imagegen.NewService(
		imagegen.NewRepo(gdb), gen, captureSvc, nil, nil,
		cfg.DataDir, cfg.ImageStylePrefix,
	)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logging.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logging.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		logging.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		logging.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		logging.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Infof("worker started queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					logging.Warnf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.RunJob(ctx, m.JobID); err != nil {
					logging.Errorf("worker=%d job=%s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}
				logging.Infof("worker=%d job=%s done cost=%s", workerID, m.JobID, time.Since(start))

				if err := d.Ack(false); err != nil {
					logging.Errorf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logging.Infof("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logging.Warnf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
