package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/repository"
	"github.com/mansoorceksport/frontdesk/internal/service"
	"github.com/mansoorceksport/frontdesk/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	_ = godotenv.Load()

	// Command line flags
	mongoURI := flag.String("mongo", envOr("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"), "MongoDB connection URI")
	dbName := flag.String("db", envOr("MONGODB_DATABASE", "frontdesk"), "Database name")
	redisAddr := flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address; empty uses an in-process lock and skips cache invalidation")
	tz := flag.String("tz", envOr("GYM_TIMEZONE", "UTC"), "Gym timezone deciding today's date")
	dryRun := flag.Bool("dry-run", false, "List members with lapsed active flags without changing anything")
	perSecond := flag.Float64("rate", 20, "Maximum members swept per second (0 = unlimited)")
	flag.Parse()

	log := logger.New(envOr("LOG_LEVEL", "info"))

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *tz, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(*dbName)

	var (
		locker domain.MemberLocker = repository.NewLocalMemberLocker()
		cache  domain.CacheRepository
	)
	if *redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		// Sharing the server's lock keys keeps the sweep from racing live check-ins
		locker = repository.NewRedisMemberLocker(redisClient)
		cache = repository.NewRedisCacheRepository(redisClient)
	}

	lifecycle := service.NewLifecycleManager(
		repository.NewMongoMembershipRepository(db),
		repository.NewMongoMemberRepository(db),
		repository.NewMongoTxManager(client),
		locker,
		cache,
		domain.SystemClock{},
		loc,
		10*time.Second,
		nil,
		log,
	)

	report, err := lifecycle.SweepAll(ctx, service.SweepOptions{DryRun: *dryRun, PerSecond: *perSecond})
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if *dryRun {
		fmt.Printf("Dry run: %d member(s) would be swept\n", len(report.Members))
		return
	}
	fmt.Printf("Swept %d member(s), %d failed\n", len(report.Members)-len(report.Failed), len(report.Failed))
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
