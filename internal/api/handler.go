package api

import (
	"context"
	"net"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/pipeline"
	"github.com/rs/zerolog"
)

const Version = "1.0.0"

// Asker runs a query through the whole pipeline.
type Asker interface {
	Handle(ctx context.Context, query models.Query) models.FinalResponse
}

type Handler struct {
	asker         Asker
	input         pipeline.InputGuard
	limiter       *middleware.RateLimiter
	maxQueryBytes int
	logger        *zerolog.Logger
}

func NewHandler(asker Asker, input pipeline.InputGuard, limiter *middleware.RateLimiter, maxQueryBytes int, logger *zerolog.Logger) *Handler {
	return &Handler{
		asker:         asker,
		input:         input,
		limiter:       limiter,
		maxQueryBytes: maxQueryBytes,
		logger:        logger,
	}
}

// Ask handles POST /api/v1/ask. Guardrail rejections are regular 200
// responses; only unavailable answers map to 503.
func (h *Handler) Ask(req *restful.Request, resp *restful.Response) {
	var askRequest AskRequest
	if err := req.ReadEntity(&askRequest); err != nil {
		h.logger.Warn().Msg("Failed to parse request body")
		middleware.HandleError(resp, middleware.ErrInvalidBody, http.StatusBadRequest)
		return
	}
	if err := h.validateQuery(askRequest.Query, askRequest); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if !h.limiter.Allow(rateKey(req, askRequest.SessionID)) {
		h.logger.Warn().Str("session_id", askRequest.SessionID).Msg("Rate limit exceeded")
		resp.AddHeader("Retry-After", "1")
		middleware.HandleError(resp, middleware.ErrRateLimited, http.StatusTooManyRequests)
		return
	}

	response := h.asker.Handle(req.Request.Context(), models.Query{
		Text:      askRequest.Query,
		SessionID: askRequest.SessionID,
	})

	status := http.StatusOK
	if response.Disposition == models.DispositionUnavailable {
		status = http.StatusServiceUnavailable
		if response.Retryable {
			resp.AddHeader("Retry-After", "1")
		}
	}

	resp.WriteHeaderAndEntity(status, response)
}

// CheckInput handles POST /api/v1/guardrails/input. Only the verdict is
// returned.
func (h *Handler) CheckInput(req *restful.Request, resp *restful.Response) {
	var checkRequest InputCheckRequest
	if err := req.ReadEntity(&checkRequest); err != nil {
		middleware.HandleError(resp, middleware.ErrInvalidBody, http.StatusBadRequest)
		return
	}
	if err := h.validateQuery(checkRequest.Query, checkRequest); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	verdict := h.input.Evaluate(models.Query{Text: checkRequest.Query})

	reasons := verdict.Reasons
	if reasons == nil {
		reasons = []models.ReasonCode{}
	}

	resp.WriteHeaderAndEntity(http.StatusOK, InputCheckResponse{
		Verdict:        verdict.Verdict.String(),
		Reasons:        reasons,
		RuleSetVersion: h.input.Version(),
	})
}

// Health handler GET API /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        Version,
		RuleSetVersion: h.input.Version(),
	})
}

func (h *Handler) validateQuery(query string, request any) error {
	if query == "" {
		return middleware.ErrEmptyQuery
	}
	if h.maxQueryBytes > 0 && len(query) > h.maxQueryBytes {
		return middleware.ErrQueryTooLong
	}
	return middleware.Validate(request)
}

func rateKey(req *restful.Request, sessionID string) string {
	if sessionID != "" {
		return "session:" + sessionID
	}
	host, _, err := net.SplitHostPort(req.Request.RemoteAddr)
	if err != nil {
		host = req.Request.RemoteAddr
	}
	return "addr:" + host
}
