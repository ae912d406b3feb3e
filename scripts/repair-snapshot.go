package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot"
)

// Checks the compendium snapshot stored in Redis and, on confirmation,
// rewrites it with the derived fields filled in. A blob that is not JSON at
// all can only be deleted; the next rebuild-cache recreates it.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	key := os.Getenv("SNAPSHOT_KEY")
	if key == "" {
		key = snapshot.DefaultRedisKey
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", redisURL)
	fmt.Printf("Checking snapshot %s...\n", key)

	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		fmt.Println("No snapshot stored, nothing to check")
		return
	}
	if err != nil {
		log.Fatalf("Error reading %s: %v", key, err)
	}

	s, report, err := snapshot.Decode(data)
	if err != nil {
		fmt.Printf("✗ %s is unreadable: %v\n", key, err)
		if confirm(fmt.Sprintf("Do you want to DELETE %s?", key)) {
			if err := client.Del(ctx, key).Err(); err != nil {
				log.Fatalf("Failed to delete %s: %v", key, err)
			}
			fmt.Printf("Deleted %s\n", key)
		}
		return
	}

	fmt.Printf("\nSnapshot %s: %d packs, %d documents\n", s.CacheVersion, len(s.Packs), s.DocumentCount())
	if report.OK() {
		fmt.Println("No problems found!")
		return
	}

	fmt.Println("\nProblems:")
	for _, w := range report.Warnings {
		fmt.Printf("  - %s\n", w)
	}

	if !confirm("Do you want to REWRITE the snapshot with derived fields?") {
		fmt.Println("Aborted - no changes made")
		return
	}
	repaired, err := snapshot.Encode(s)
	if err != nil {
		log.Fatal("Failed to encode snapshot:", err)
	}
	if err := client.Set(ctx, key, repaired, 0).Err(); err != nil {
		log.Fatalf("Failed to write %s: %v", key, err)
	}
	fmt.Println("\nRepair complete!")
}

func confirm(question string) bool {
	fmt.Printf("\n%s (yes/no): ", question)
	var response string
	_, _ = fmt.Scanln(&response)
	return response == "yes"
}
