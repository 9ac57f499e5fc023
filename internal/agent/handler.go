package agent

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"agentsouk/internal/api"
	"agentsouk/internal/apperr"
	"agentsouk/internal/auth"

	"github.com/gin-gonic/gin"
)

// 10 MB cap on uploaded documents and datasets.
const maxUploadBytes = 10 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type runBody struct {
	Input     map[string]string `json:"input"`
	SessionID string            `json:"session_id"`
}

type reportRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Run godoc
// @Summary      Run an agent
// @Description  Executes one paid agent run. Accepts JSON or multipart form with an optional file upload. The price is debited after a successful run; a failed run costs nothing.
// @Tags         agents
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Agent slug"
// @Success      200 {object} agent.RunResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /agents/{slug}/run [post]
func (h *Handler) Run(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	req, err := parseRunRequest(c)
	if err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Run(c.Request.Context(), userID, c.Param("slug"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseRunRequest(c *gin.Context) (RunRequest, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
			return RunRequest{}, errors.New("invalid multipart form")
		}

		req := RunRequest{Input: map[string]string{}}
		for k, v := range c.Request.MultipartForm.Value {
			if len(v) > 0 {
				req.Input[k] = v[0]
			}
		}
		req.SessionID = req.Input["session_id"]
		delete(req.Input, "session_id")

		file, header, err := c.Request.FormFile("file")
		if err == nil {
			req.File = file
			req.FileName = header.Filename
		}
		return req, nil
	}

	var body runBody
	if err := c.ShouldBindJSON(&body); err != nil {
		return RunRequest{}, errors.New("invalid request body")
	}
	if body.Input == nil {
		body.Input = map[string]string{}
	}
	return RunRequest{Input: body.Input, SessionID: body.SessionID}, nil
}

// Chat godoc
// @Summary      Incident analyst chat turn
// @Description  Relays one free conversational turn to the incident analyst and stores it in the session transcript. Only the final report is billed.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body agent.ChatRequest true "Chat turn"
// @Success      200 {object} agent.ChatResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /agents/incident-analyst/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary      Generate incident report
// @Description  Produces the billed report from an accumulated chat transcript. Debited once per report.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body agent.reportRequest true "Session"
// @Success      200 {object} agent.RunResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Router       /agents/incident-analyst/report [post]
func (h *Handler) Report(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Report(c.Request.Context(), userID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Transcript godoc
// @Summary      Incident analyst transcript
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Param        sid path string true "Session ID"
// @Success      200 {array} agent.Turn
// @Failure      401 {object} api.ErrorResponse
// @Router       /agents/incident-analyst/chat/{sid} [get]
func (h *Handler) Transcript(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	turns, err := h.service.Transcript(c.Request.Context(), userID, c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	if turns == nil {
		turns = []Turn{}
	}

	c.JSON(http.StatusOK, turns)
}

// History godoc
// @Summary      List agent runs
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size, default 50"
// @Param        offset query int false "Offset"
// @Success      200 {array} agent.Run
// @Failure      401 {object} api.ErrorResponse
// @Router       /agents/runs [get]
func (h *Handler) History(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, err := h.service.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load runs"})
		return
	}
	if runs == nil {
		runs = []Run{}
	}

	c.JSON(http.StatusOK, runs)
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrUnknownAgent) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Agent not found"})
		return
	}

	kind := apperr.KindOf(err)
	c.JSON(apperr.HTTPStatus(kind), api.ErrorResponse{
		Error: apperr.UserMessage(kind),
		Kind:  string(kind),
	})
}
