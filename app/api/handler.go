package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docqa/answer"
	"docqa/retriever"
	"docqa/types"

	"github.com/gofiber/fiber/v2"
)

type RequestHandler struct {
	engine    *retriever.Engine
	asker     *answer.Asker
	sourceDir string
}

func NewRequestHandler(engine *retriever.Engine, asker *answer.Asker, sourceDir string) *RequestHandler {
	return &RequestHandler{
		engine:    engine,
		asker:     asker,
		sourceDir: sourceDir,
	}
}

// HandleAsk answers a question grounded on retrieved chunks.
func (h *RequestHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	topK := params.TopK
	if topK == 0 {
		topK = 3
	}

	resp, err := h.asker.Ask(c.UserContext(), params.Question, topK, params.Filename)
	if err != nil {
		return err
	}
	resp.Timestamp = time.Now()

	return c.JSON(resp)
}

// HandleSearch exposes the raw ranked retrieval without the LLM call.
func (h *RequestHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	topK := params.TopK
	if topK == 0 {
		topK = 5
	}

	results, err := h.engine.Retrieve(c.UserContext(), params.Query, topK, params.Filename)
	if err != nil {
		if errors.Is(err, retriever.ErrServiceUnavailable) {
			return NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.JSON(types.SearchResponse{Results: results})
}

// HandleUpload saves an uploaded markdown file into the source directory for
// the next ingestion run.
func (h *RequestHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	path := filepath.Join(h.sourceDir, filepath.Base(file.Filename))
	if err := os.MkdirAll(h.sourceDir, 0755); err != nil {
		return err
	}
	if err := c.SaveFile(file, path); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"result": fmt.Sprintf("saved to %s", path)})
}
