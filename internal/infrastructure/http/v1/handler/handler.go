package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kosma/geocatalog/internal/catalogerr"
	"github.com/kosma/geocatalog/internal/client"
)

const internalServerErrorText = "the server encountered an error and could not process your request"

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Handler serves the v1 HTTP surface over one LayerClient façade.
type Handler struct {
	validate *validator.Validate
	client   *client.Client
}

func NewHandler(v *validator.Validate, c *client.Client) *Handler {
	return &Handler{validate: v, client: c}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	r := response{Success: code < 400, Message: message, Data: data}
	c.JSON(code, r)
}

// respondWithError maps a catalogerr.Error's Kind to an HTTP status,
// falling back to 500 for anything not modeled by the closed error set.
func (h *Handler) respondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var ce *catalogerr.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case catalogerr.InvalidArgument, catalogerr.PreconditionFailed, catalogerr.BadRequest:
			status = http.StatusBadRequest
		case catalogerr.NotFound:
			status = http.StatusNotFound
		case catalogerr.Cancelled:
			status = http.StatusRequestTimeout
		case catalogerr.Network:
			status = http.StatusBadGateway
		}
	}
	h.RespondWithJSON(c, status, err.Error(), nil)
}
