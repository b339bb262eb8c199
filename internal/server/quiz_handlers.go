package server

import (
	"socialgrid/internal/featureflags"
	"socialgrid/internal/models"
	"socialgrid/internal/quiz"

	"github.com/gofiber/fiber/v2"
)

// AnswerRequest is the body of POST /api/quiz/:id/answer.
type AnswerRequest struct {
	Answer *int `json:"answer"`
}

// QuizEnabled returns 404 for quiz routes while the quiz flag is off.
func (s *Server) QuizEnabled() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.Quiz, c.Query("userId")) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				&models.AppError{Code: models.CodeNotFound, Message: "Quiz is not available"})
		}
		return c.Next()
	}
}

// GetQuizPage handles GET /api/quiz?page=N&perPage=M
func (s *Server) GetQuizPage(c *fiber.Ctx) error {
	page, err := s.quizBank.Page(c.QueryInt("page", 1), c.QueryInt("perPage", quiz.DefaultPerPage))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(page)
}

// AnswerQuestion handles POST /api/quiz/:id/answer
func (s *Server) AnswerQuestion(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "question ID")
	if err != nil {
		return nil
	}

	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil || req.Answer == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("answer is required"))
	}

	result, err := s.quizBank.Check(id, *req.Answer)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(result)
}
