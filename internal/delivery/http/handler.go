package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

const (
	exportFilename    = "knowledge_base.xlsx"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	clarifyProductMsg = "Could not identify the product. Mention it explicitly, for example \"harga Ruijie RAP2200\" or \"product: Ruijie RAP2200\"."
	clarifyPriceMsg   = "Could not find a quoted price. Include it as \"Rp 1.250.000\" or \"IDR 1250000\"."
)

// HandlerConfig holds request defaults and the persona catalogue
type HandlerConfig struct {
	DefaultMargin    float64
	DefaultPlatforms []domain.Platform
	Roles            []domain.Role
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	reconciler    *usecase.ReconciliationService
	knowledgeBase *usecase.KnowledgeBaseService
	extractor     *usecase.ProductExtractor
	cfg           HandlerConfig
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler. Nil services make their endpoints answer 503.
func NewHandler(
	reconciler *usecase.ReconciliationService,
	knowledgeBase *usecase.KnowledgeBaseService,
	cfg HandlerConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		reconciler:    reconciler,
		knowledgeBase: knowledgeBase,
		extractor:     usecase.NewProductExtractor(logger),
		cfg:           cfg,
		logger:        logger,
	}
}

type reconcileRequest struct {
	Query       string   `json:"query"`
	ProductName string   `json:"productName"`
	Margin      *float64 `json:"margin"`
	Platforms   []string `json:"platforms"`
	QuotedPrice *float64 `json:"quotedPrice"`
}

type reviewOfferRequest struct {
	Text      string   `json:"text" binding:"required"`
	Margin    *float64 `json:"margin"`
	Platforms []string `json:"platforms"`
}

type extractRequest struct {
	Text string `json:"text" binding:"required"`
}

type extractResponse struct {
	ProductName *string  `json:"productName,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

type addEntryRequest struct {
	ProductName string   `json:"productName" binding:"required"`
	UnitPrice   *float64 `json:"unitPrice" binding:"required"`
	Platform    string   `json:"platform" binding:"required"`
	SourceURL   string   `json:"sourceUrl"`
}

type extractEntryRequest struct {
	Text     string `json:"text" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	URL      string `json:"url"`
}

type reconcileResponse struct {
	Result  *domain.ReconciliationResult `json:"result"`
	Context string                       `json:"context"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// ListRoles returns the assistant personas
func (h *Handler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": h.cfg.Roles})
}

// Extract pulls a product name and a price out of free text
func (h *Handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	var resp extractResponse
	price, rest, hasPrice := usecase.StripPrice(req.Text)
	if hasPrice {
		resp.Price = &price
	}
	if name, ok := h.extractor.ExtractProductName(rest); ok {
		resp.ProductName = &name
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile returns the ceiling price for a product name or a free-text query
func (h *Handler) Reconcile(c *gin.Context) {
	if h.reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price reconciliation not configured"})
		return
	}

	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	margin, platforms, err := h.requestDefaults(req.Margin, req.Platforms)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var result *domain.ReconciliationResult
	switch {
	case strings.TrimSpace(req.ProductName) != "":
		result, err = h.reconciler.Reconcile(c.Request.Context(), &usecase.ReconcileRequest{
			ProductName: strings.TrimSpace(req.ProductName),
			Margin:      margin,
			Platforms:   platforms,
			QuotedPrice: req.QuotedPrice,
		})
	case strings.TrimSpace(req.Query) != "":
		result, err = h.reconciler.Research(c.Request.Context(), req.Query, margin, platforms, req.QuotedPrice)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "query or productName is required"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileResponse{Result: result, Context: usecase.FormatReconciliation(result)})
}

// ReviewOffer judges a vendor offer against the reconciled ceiling
func (h *Handler) ReviewOffer(c *gin.Context) {
	if h.reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price reconciliation not configured"})
		return
	}

	var req reviewOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	margin, platforms, err := h.requestDefaults(req.Margin, req.Platforms)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.reconciler.ReviewOffer(c.Request.Context(), req.Text, margin, platforms)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reconcileResponse{Result: result, Context: usecase.FormatReconciliation(result)})
}

// ListKnowledgeBase returns every knowledge base entry
func (h *Handler) ListKnowledgeBase(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}
	entries, err := h.knowledgeBase.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "context": usecase.FormatKnowledgeBase(entries)})
}

// SearchKnowledgeBase returns entries whose name contains ?name=
func (h *Handler) SearchKnowledgeBase(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}
	entries, err := h.knowledgeBase.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// KnowledgeBaseStats summarizes the table
func (h *Handler) KnowledgeBaseStats(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}
	stats, err := h.knowledgeBase.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AddKnowledgeBaseEntry appends a manually entered product
func (h *Handler) AddKnowledgeBaseEntry(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}

	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName, unitPrice and platform are required"})
		return
	}

	entry := domain.KnowledgeBaseEntry{
		ProductName: strings.TrimSpace(req.ProductName),
		UnitPrice:   *req.UnitPrice,
		Platform:    domain.Platform(strings.TrimSpace(req.Platform)),
		SourceURL:   strings.TrimSpace(req.SourceURL),
	}
	if err := h.knowledgeBase.AddEntry(c.Request.Context(), entry); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ExtractKnowledgeBaseEntry builds an entry from a chat message and stores it
func (h *Handler) ExtractKnowledgeBaseEntry(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}

	var req extractEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text and platform are required"})
		return
	}

	entry, err := h.knowledgeBase.AddFromMessage(
		c.Request.Context(),
		req.Text,
		domain.Platform(strings.TrimSpace(req.Platform)),
		strings.TrimSpace(req.URL),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ImportKnowledgeBase appends rows from an uploaded spreadsheet (multipart field "file")
func (h *Handler) ImportKnowledgeBase(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	n, err := h.knowledgeBase.Import(c.Request.Context(), file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

// ExportKnowledgeBase downloads the table as xlsx
func (h *Handler) ExportKnowledgeBase(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}

	data, err := h.knowledgeBase.Export(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ClearKnowledgeBase removes every entry
func (h *Handler) ClearKnowledgeBase(c *gin.Context) {
	if !h.requireKnowledgeBase(c) {
		return
	}
	if err := h.knowledgeBase.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) requireKnowledgeBase(c *gin.Context) bool {
	if h.knowledgeBase == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge base not configured"})
		return false
	}
	return true
}

// requestDefaults fills in configured defaults and validates the margin and platforms
func (h *Handler) requestDefaults(margin *float64, names []string) (float64, []domain.Platform, error) {
	m := h.cfg.DefaultMargin
	if margin != nil {
		m = *margin
	}
	if m < 0 || m > config.MaxMargin {
		return 0, nil, fmt.Errorf("%w: margin must be between 0 and %.1f", domain.ErrInvalidRequest, config.MaxMargin)
	}

	if len(names) == 0 {
		return m, h.cfg.DefaultPlatforms, nil
	}
	platforms := make([]domain.Platform, 0, len(names))
	for _, name := range names {
		p, err := domain.ParsePlatform(name)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %q", err, name)
		}
		platforms = append(platforms, p)
	}
	return m, platforms, nil
}

// writeError maps domain errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownPlatform):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrProductNameNotFound):
		status, message = http.StatusUnprocessableEntity, clarifyProductMsg
	case errors.Is(err, domain.ErrPriceNotFound):
		status, message = http.StatusUnprocessableEntity, clarifyPriceMsg
	case errors.Is(err, domain.ErrNoReferencePrice):
		status, message = http.StatusNotFound, "no reference price found"
	case errors.Is(err, domain.ErrKnowledgeBaseCorrupt):
		message = "knowledge base file is corrupt"
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "request timed out"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}
