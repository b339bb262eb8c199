// Package seed fills a post store with fake users and posts for local development.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"socialgrid/internal/models"
	"socialgrid/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Seeder submits fake posts through the post service so quota rules apply.
type Seeder struct {
	posts *service.PostService
	faker *gofakeit.Faker
}

// NewSeeder creates a seeder. A zero seed uses the current time.
func NewSeeder(posts *service.PostService, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{posts: posts, faker: gofakeit.New(seed)}
}

// Result counts what a seeding run did.
type Result struct {
	Created  int
	Rejected int
}

// SeedPosts creates numUsers anonymous users and attempts postsPerUser uploads
// for each. Attempts beyond the per-user quota are counted as rejected.
func (s *Seeder) SeedPosts(ctx context.Context, numUsers, postsPerUser int) (Result, error) {
	var res Result
	for u := 0; u < numUsers; u++ {
		userID := s.faker.UUID()
		handle := "@" + s.faker.Username()

		for p := 0; p < postsPerUser; p++ {
			in := service.SubmitPostInput{
				TwitterURL: handle,
				UserID:     userID,
			}
			if s.faker.Bool() {
				in.Image, in.MIMEType = s.faker.ImagePng(64, 64), "image/png"
			} else {
				in.Image, in.MIMEType = s.faker.ImageJpeg(64, 64), "image/jpeg"
			}

			_, err := s.posts.Submit(ctx, in)
			switch {
			case err == nil:
				res.Created++
			case models.HasCode(err, models.CodeQuotaExceeded):
				res.Rejected++
			default:
				return res, fmt.Errorf("seed post for %s: %w", userID, err)
			}
		}

		if (u+1)%10 == 0 {
			log.Printf("  … %d/%d users seeded", u+1, numUsers)
		}
	}
	return res, nil
}
