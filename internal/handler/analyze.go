package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/ai"
	"github.com/greenli8/idea-validator/internal/middleware"
	"github.com/greenli8/idea-validator/internal/model"
	"github.com/greenli8/idea-validator/internal/queue"
	"github.com/greenli8/idea-validator/internal/repository"
)

const maxIdeaLen = 10000

// creditLedger is the slice of UserRepo the analysis flow needs. Deduct must
// be atomic under concurrent requests for the same user.
type creditLedger interface {
	DeductCredit(ctx context.Context, userID uint64, requestID string) (model.User, error)
	RefundCredit(ctx context.Context, userID uint64, amount int, requestID string) (model.User, error)
}

// analyzer abstracts the provider gateway.
type analyzer interface {
	Analyze(ctx context.Context, idea string, attachment *model.Attachment, preferred string) (ai.Result, error)
	Chat(ctx context.Context, message string, cc ai.ChatContext) (string, error)
}

// reportStore abstracts report persistence.
type reportStore interface {
	Create(ctx context.Context, userID uint64, originalIdea, provider string, a model.Analysis, full json.RawMessage) (model.Report, error)
}

// AnalyzeHandler runs the core deduct -> analyze -> persist flow. A credit is
// taken before the AI call and given back exactly once if anything after the
// deduction fails.
type AnalyzeHandler struct {
	Ledger  creditLedger
	AI      analyzer
	Reports reportStore
}

func NewAnalyzeHandler(ledger creditLedger, gw analyzer, reports reportStore) *AnalyzeHandler {
	return &AnalyzeHandler{Ledger: ledger, AI: gw, Reports: reports}
}

type analyzeReq struct {
	Idea       string            `json:"idea"`
	Attachment *model.Attachment `json:"attachment,omitempty"`
	Provider   string            `json:"provider,omitempty"`
}

type analyzeResp struct {
	Report           model.Report `json:"report"`
	RemainingCredits any          `json:"remainingCredits"`
}

type chatReq struct {
	Message string `json:"message"`
	Context *struct {
		OriginalIdea string          `json:"originalIdea"`
		Report       json.RawMessage `json:"report,omitempty"`
	} `json:"context"`
}

// Analyze handles POST /v1/analyze.
func (h *AnalyzeHandler) Analyze(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	req.Idea = strings.TrimSpace(req.Idea)
	if req.Idea == "" && req.Attachment == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idea is required", "code": CodeValidation})
	}
	if len(req.Idea) > maxIdeaLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idea is too long", "code": CodeValidation})
	}
	if req.Attachment != nil && (req.Attachment.MimeType == "" || req.Attachment.Data == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attachment requires mimeType and data", "code": CodeValidation})
	}

	requestID := uuid.NewString()
	ctx := c.Request().Context()

	u, err := h.Ledger.DeductCredit(ctx, userID, requestID)
	if err != nil {
		switch err {
		case repository.ErrInsufficientCredits:
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "no credits remaining", "code": CodeInsufficientCredits})
		case repository.ErrUserNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found", "code": CodeNotFound})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit check failed", "code": CodeInternal})
		}
	}

	result, err := h.AI.Analyze(ctx, req.Idea, req.Attachment, req.Provider)
	if err != nil {
		h.refund(userID, u.IsPro, requestID)
		if ex, ok := err.(*ai.ExhaustedError); ok {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error":    "all AI providers failed",
				"code":     CodeAIUnavailable,
				"failures": ex.Failures,
			})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "analysis failed", "code": CodeAIUnavailable})
	}

	report, err := h.Reports.Create(ctx, userID, req.Idea, result.Provider, result.Analysis, result.Raw)
	if err != nil {
		h.refund(userID, u.IsPro, requestID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save report failed", "code": CodeInternal})
	}

	go publishReportCreated(report)

	var remaining any = u.Credits
	if u.IsPro {
		remaining = "unlimited"
	}
	return c.JSON(http.StatusOK, analyzeResp{Report: report, RemainingCredits: remaining})
}

// Chat handles POST /v1/chat, a follow-up conversation grounded in one report.
// Chat turns are free and never touch the ledger.
func (h *AnalyzeHandler) Chat(c echo.Context) error {
	if _, err := middleware.CurrentUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required", "code": CodeValidation})
	}
	if req.Context == nil || strings.TrimSpace(req.Context.OriginalIdea) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "context with originalIdea is required", "code": CodeValidation})
	}

	text, err := h.AI.Chat(c.Request().Context(), req.Message, ai.ChatContext{
		OriginalIdea: req.Context.OriginalIdea,
		Report:       req.Context.Report,
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "chat failed", "code": CodeAIUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{"text": text})
}

// refund compensates a taken credit. Pro users were never decremented, so
// there is nothing to give back. A failed refund is the one place we can
// silently lose a user's credit, hence the loud log line.
func (h *AnalyzeHandler) refund(userID uint64, isPro bool, requestID string) {
	if isPro {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.Ledger.RefundCredit(ctx, userID, 1, requestID); err != nil {
		log.Printf("CRITICAL: refund failed user=%d request=%s: %v", userID, requestID, err)
	}
}

func publishReportCreated(rep model.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue.Publish(ctx, queue.QueueReportCreated, queue.ReportCreatedEvent{
		ReportID:       rep.ID,
		UserID:         rep.UserID,
		SummaryVerdict: rep.SummaryVerdict,
		ViabilityScore: rep.ViabilityScore,
		Provider:       rep.Provider,
		CreatedAt:      rep.CreatedAt.UTC().Format(time.RFC3339),
	})
}
