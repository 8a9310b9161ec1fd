// accountctl manages the Redis mapping from workflow-platform accounts to
// their Flodesk API keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/af-corp/flodesk-bridge/internal/credential"
)

func main() {
	op := flag.String("op", "", "operation: set, get, or delete (required)")
	account := flag.String("account", "", "workflow-platform account ID (required)")
	apiKey := flag.String("key", "", "Flodesk API key (required for set)")
	redisAddr := flag.String("redis", "", "redis address (overrides env)")
	flag.Parse()

	if *op == "" || *account == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -op and -account are required")
		os.Exit(1)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis at %s: %v", addr, err)
	}

	store := credential.NewRedisStore(rdb)

	switch *op {
	case "set":
		if *apiKey == "" {
			log.Fatal("-key is required for set")
		}
		sanitized, err := credential.Resolve(*apiKey)
		if err != nil {
			log.Fatalf("refusing to store credential: %v", err)
		}
		if err := store.Save(ctx, *account, sanitized); err != nil {
			log.Fatalf("failed to save credential: %v", err)
		}
		fmt.Printf("credential stored for account %s (key %s)\n", *account, credential.SafePrefix(sanitized))

	case "get":
		key, err := store.Lookup(ctx, *account)
		if err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		if key == "" {
			fmt.Printf("no credential stored for account %s\n", *account)
			os.Exit(1)
		}
		fmt.Printf("account %s has credential %s\n", *account, credential.SafePrefix(key))

	case "delete":
		if err := store.Delete(ctx, *account); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Printf("credential deleted for account %s\n", *account)

	default:
		log.Fatalf("invalid op: %s (use 'set', 'get', or 'delete')", *op)
	}
}
