package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-triage/internal/api/dto"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// ArticlesHandler manages knowledge-base endpoints.
type ArticlesHandler struct {
	service *service.ArticleService
}

// NewArticlesHandler constructs handler.
func NewArticlesHandler(articles *service.ArticleService) *ArticlesHandler {
	return &ArticlesHandler{service: articles}
}

// Create POST /kb/articles.
func (h *ArticlesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.service.CreateArticle(c.UserContext(), service.ArticleCreateInput{
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		Status:    req.Status,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewArticleResponse(article)})
}

// Get GET /kb/articles/:id.
func (h *ArticlesHandler) Get(c *fiber.Ctx) error {
	article, err := h.service.GetArticle(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewArticleResponse(article)})
}

// Search GET /kb/articles?q=.
func (h *ArticlesHandler) Search(c *fiber.Ctx) error {
	articles, err := h.service.SearchArticles(c.UserContext(), c.Query("q"), parseInt(c.Query("limit"), 10))
	if err != nil {
		return err
	}
	items := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, dto.NewArticleResponse(&articles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
