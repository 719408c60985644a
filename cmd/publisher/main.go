package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/example/dataservice-read/internal/adapter/natsstan"
	"github.com/example/dataservice-read/internal/domain"
)

// Reads one invalidation message ({"keys":[...],"reason":"..."}) from stdin
// and publishes it to the invalidation subject.
func main() {
	clusterID := getenv("STAN_CLUSTER_ID", "dsread-cluster")
	clientID := getenv("STAN_PUB_ID", "dsread-publisher")
	natsURL := getenv("STAN_URL", "nats://localhost:4223")
	subject := getenv("STAN_SUBJECT", "dsread.invalidations")

	var inv domain.Invalidation
	if err := json.NewDecoder(os.Stdin).Decode(&inv); err != nil {
		fatal("read json from stdin", err)
	}
	if len(inv.Keys) == 0 {
		fatal("validate", fmt.Errorf("no keys to invalidate"))
	}
	if inv.Reason == "" {
		inv.Reason = "manual"
	}

	pub, err := natsstan.Connect(clusterID, clientID, natsURL, subject)
	if err != nil {
		fatal("stan connect", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.PublishInvalidation(ctx, inv); err != nil {
		fatal("publish", err)
	}
	slog.Info("published invalidation", "keys", len(inv.Keys), "subject", subject)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
