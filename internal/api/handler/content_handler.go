package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/matjarly/dispatch-core/internal/core/ports"
)

// ContentHandler generates product descriptions through the text
// generation provider.
type ContentHandler struct {
	generator ports.TextGenerator
}

func NewContentHandler(generator ports.TextGenerator) *ContentHandler {
	return &ContentHandler{generator: generator}
}

type describeRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category,omitempty"`
	Keywords string `json:"keywords,omitempty"`
}

type describeResponse struct {
	Description string `json:"description"`
}

// Describe generates a product description.
//
// @Summary      Generate a product description
// @Tags         content
// @Accept       json
// @Produce      json
// @Param        body  body      describeRequest  true  "Product details"
// @Success      200   {object}  describeResponse
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /content/description [post]
func (h *ContentHandler) Describe(c echo.Context) error {
	var req describeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	text, err := h.generator.Generate(c.Request().Context(), buildPrompt(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, describeResponse{Description: text})
}

func buildPrompt(req describeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short product description for %q.", req.Name)
	if req.Category != "" {
		fmt.Fprintf(&b, " Category: %s.", req.Category)
	}
	if req.Keywords != "" {
		fmt.Fprintf(&b, " Keywords: %s.", req.Keywords)
	}
	return b.String()
}
