// Command main seeds the configured post store with fake posts.
package main

import (
	"context"
	"flag"
	"log"

	"socialgrid/internal/config"
	"socialgrid/internal/featureflags"
	"socialgrid/internal/repository"
	"socialgrid/internal/seed"
	"socialgrid/internal/service"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of anonymous users to create")
	postsPerUser := flag.Int("posts-per-user", 2, "Upload attempts per user (the quota caps successes)")
	seedValue := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	log.Println("🌱 Post Seeder")
	log.Println("==============")
	log.Printf("Target: %d users, %d attempts each\n", *numUsers, *postsPerUser)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	repo, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	svc := service.NewPostService(repo, featureflags.NewManager(cfg.FeatureFlags))
	res, err := seed.NewSeeder(svc, *seedValue).SeedPosts(ctx, *numUsers, *postsPerUser)
	_ = closeStore(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d posts created, %d rejected by quota.", res.Created, res.Rejected)
}
