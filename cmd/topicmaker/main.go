package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nicolasbarcena/KazaroPedidos/config"
	"github.com/nicolasbarcena/KazaroPedidos/pkg/sigctx"
)

const (
	partitions        = 3
	replicationFactor = 3
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()

	cl := createClient(cfg.Broker.SeedBrokers)
	defer cl.Close()

	fmt.Printf("creating topics on %v...\n", cfg.Broker.SeedBrokers)
	defer printComplete(time.Now())

	if err := makeTopics(sigCtx, cl, cfg.Broker.OrderEventsTopic); err != nil {
		fmt.Printf("failed to create topics: %v\n", err)
	}
}

func createClient(seedBrokers []string) *kadm.Client {
	cl, err := kadm.NewOptClient(kgo.SeedBrokers(seedBrokers...))
	if err != nil {
		panic(fmt.Errorf("main.createClient: %w", err))
	}
	return cl
}

func makeTopics(ctx context.Context, cl *kadm.Client, topics ...string) error {
	configs := map[string]*string{"cleanup.policy": ptr("delete")}

	res, err := cl.CreateTopics(
		ctx, partitions, replicationFactor, configs, topics...,
	)
	if err != nil {
		return err
	}

	for _, r := range res.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("topic %q: %w", r.Topic, r.Err)
		}
		fmt.Printf("topic %q is ready\n", r.Topic)
	}
	return nil
}

func printComplete(start time.Time) {
	fmt.Printf("done in %v\n", time.Since(start))
}

func ptr(s string) *string {
	return &s
}
