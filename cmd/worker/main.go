package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/config"
	"github.com/suPer8Hu/dispensary/internal/metrics"
	"github.com/suPer8Hu/dispensary/internal/notify"
	"github.com/suPer8Hu/dispensary/internal/store/rabbitmq"
)

func workerConcurrency(n int) int {
	if n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.MustLoad()
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the notification worker")
	}

	mailer, err := notify.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		log.WithError(err).Fatal("smtp not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.WithError(err).Fatal("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Fatal("rabbit channel")
	}
	defer ch.Close()

	if err := rabbitmq.DeclareQueues(ch, cfg.RabbitQueue); err != nil {
		log.WithError(err).Fatal("queue declare")
	}

	// strict concurrency control
	concurrency := workerConcurrency(cfg.WorkerConcurrency)

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.WithError(err).Fatal("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.WithError(err).Fatal("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"queue": cfg.RabbitQueue, "concurrency": concurrency}).Info("worker started")

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.WithField("worker", workerID)
			for d := range jobs {
				var note notify.Notification
				if err := json.Unmarshal(d.Body, &note); err != nil || note.Kind == "" {
					wlog.WithError(err).Warn("bad notification message")
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				err := notify.Deliver(sendCtx, mailer, note)
				cancel()
				metrics.Get().Notifications.WithLabelValues("worker", metrics.Result(err)).Inc()
				entry := wlog.WithFields(logrus.Fields{"kind": note.Kind, "to": note.To, "cost": time.Since(start)})
				if err != nil {
					// not retried; the message is parked on the dead-letter queue
					entry.WithError(err).Error("notification failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					entry.WithError(err).Warn("ack failed")
					continue
				}
				entry.Info("notification sent")
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}
