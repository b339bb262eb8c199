package server

import (
	"io"
	"log/slog"
	"strings"

	"socialgrid/internal/middleware"
	"socialgrid/internal/models"
	"socialgrid/internal/service"
	"socialgrid/internal/submission"

	"github.com/gofiber/fiber/v2"
)

// CreatePostResponse is the API response after a successful upload.
type CreatePostResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

// CreatePost handles POST /api/posts (multipart: file, twitterUrl, userId)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.FormValue("userId"))
	ctx := middleware.WithUserID(c.UserContext(), userID)

	var (
		image    []byte
		mimeType string
	)
	// A missing file is reported by the service together with the other fields.
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		}
		defer func() { _ = src.Close() }()

		image, err = io.ReadAll(src)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		}

		mimeType = file.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = submission.DetectMIME(file.Filename, image)
		}
	}

	post, err := s.postService.Submit(ctx, service.SubmitPostInput{
		Image:      image,
		MIMEType:   mimeType,
		TwitterURL: c.FormValue("twitterUrl"),
		UserID:     userID,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "post rejected", slog.String("error", err.Error()))
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(CreatePostResponse{
		Message: "Post created successfully",
		Post:    post,
	})
}

// GetPosts handles GET /api/posts. Without a limit every post is returned.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		feed *models.Feed
		err  error
	)
	if c.Query("limit") == "" {
		feed, err = s.postService.ListAll(ctx)
	} else {
		page := parsePagination(c, defaultPaginationLimit)
		feed, err = s.postService.ListPage(ctx, page.Limit, page.Offset)
	}
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(feed)
}

// GetUserPosts handles GET /api/users/:userId/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return nil
	}
	ctx := middleware.WithUserID(c.UserContext(), userID)

	posts, err := s.postService.UserPosts(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(posts)
}

// GetUserQuota handles GET /api/users/:userId/quota
func (s *Server) GetUserQuota(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return nil
	}
	ctx := middleware.WithUserID(c.UserContext(), userID)

	quota, err := s.postService.Quota(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(quota)
}
