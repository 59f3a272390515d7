package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/report"
	"x1-token-verifier/internal/risk"
	"x1-token-verifier/internal/solana"
	"x1-token-verifier/internal/storage"
)

// ReporterHeader carries the authenticated reporter identity.
const ReporterHeader = "X-Reporter-Identity"

const maxBodyBytes = 1 << 20

// Verifier is the scoring surface used by the handlers.
type Verifier interface {
	Network() string
	ScoreToken(ctx context.Context, mint, network string) (*domain.RiskAssessment, error)
	AnalyzeTax(ctx context.Context, mint, tokenType string) (*risk.TaxReport, error)
	DetectLiquidity(ctx context.Context, mint string) (domain.LiquidityProfile, error)
}

// Reporter accepts user reports.
type Reporter interface {
	SubmitReport(ctx context.Context, in report.Input) (*report.Result, error)
}

// ReportObserver records report outcomes.
type ReportObserver interface {
	ObserveReport(outcome string)
}

// Handler serves the verifier HTTP API.
// Tokens, History and Reports observer are optional.
type Handler struct {
	Verifier       Verifier
	Reporter       Reporter
	Tokens         storage.TokenStore
	History        storage.AssessmentHistoryStore
	ReportObserver ReportObserver
	RequestTimeout time.Duration
	Logger         logrus.FieldLogger
}

type verifyRequest struct {
	MintAddress string `json:"mintAddress"`
	Network     string `json:"network"`
}

type analyzeTaxRequest struct {
	MintAddress string `json:"mintAddress"`
	TokenType   string `json:"tokenType"`
}

type reportRequest struct {
	MintAddress string `json:"mintAddress"`
	Reason      string `json:"reason"`
	Category    string `json:"category"`
}

// Health reports liveness and the served network.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"network": h.Verifier.Network(),
	})
}

// Verify scores a mint. The network field is required and must name the
// served network; anything else, including an empty value, is a 400.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	assessment, err := h.Verifier.ScoreToken(ctx, strings.TrimSpace(req.MintAddress), req.Network)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// AnalyzeTax runs transfer-fee and hook analysis without scoring.
func (h *Handler) AnalyzeTax(w http.ResponseWriter, r *http.Request) {
	var req analyzeTaxRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	taxReport, err := h.Verifier.AnalyzeTax(ctx, strings.TrimSpace(req.MintAddress), req.TokenType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taxReport)
}

// Liquidity returns the pool profile for the mint in the path.
func (h *Handler) Liquidity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	profile, err := h.Verifier.DetectLiquidity(ctx, r.PathValue("mint"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SubmitReport records a user report. The reporter identity comes from
// ReporterHeader and rate-limited requests carry Retry-After.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	reporter := strings.TrimSpace(r.Header.Get(ReporterHeader))
	if reporter == "" {
		h.observeReport("unauthorized")
		writeJSON(w, http.StatusUnauthorized, errorPayload("reporter identity required"))
		return
	}

	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.Reporter.SubmitReport(ctx, report.Input{
		MintAddress:      req.MintAddress,
		ReporterIdentity: reporter,
		Reason:           req.Reason,
		Category:         domain.ReportCategory(req.Category),
	})
	if err != nil {
		var rl *domain.RateLimitError
		if errors.As(err, &rl) {
			h.observeReport("rate_limited")
			secs := int(math.Ceil(rl.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		} else {
			h.observeReport("rejected")
		}
		h.writeError(w, err)
		return
	}

	h.observeReport("accepted")
	writeJSON(w, http.StatusCreated, result)
}

// GetToken returns the persisted token record, or 404 when no token store is wired.
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	if h.Tokens == nil {
		writeJSON(w, http.StatusNotFound, errorPayload("token store disabled"))
		return
	}

	token, err := h.Tokens.GetByMint(r.Context(), r.PathValue("mint"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// TokenHistory lists past assessments for a mint, newest first.
// limit defaults to 50 and is capped at 500.
func (h *Handler) TokenHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, errorPayload("assessment history disabled"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	records, err := h.History.GetByMint(r.Context(), r.PathValue("mint"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.AssessmentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": records})
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.RequestTimeout)
}

func (h *Handler) observeReport(outcome string) {
	if h.ReportObserver != nil {
		h.ReportObserver.ObserveReport(outcome)
	}
}

// writeError maps domain errors onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger().WithError(err).Warn("[server] request failed")
	}
	writeJSON(w, status, errorPayload(err.Error()))
}

func (h *Handler) logger() logrus.FieldLogger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, solana.ErrAllEndpointsFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload("invalid json"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorPayload(msg string) map[string]interface{} {
	return map[string]interface{}{"ok": false, "error": msg}
}
