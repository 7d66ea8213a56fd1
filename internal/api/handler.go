package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bsv-faucet/faucet/internal/faucet"
	"github.com/bsv-faucet/faucet/internal/identity"
	"github.com/bsv-faucet/faucet/internal/store"
	"github.com/bsv-faucet/faucet/internal/wallet"
)

// Identity headers. A caller supplies either the pre-computed hash or the
// provider and subject it was derived from; the hash wins when both are set.
const (
	HeaderUserHash         = "X-Faucet-User-Hash"
	HeaderProvider         = "X-Faucet-Provider"
	HeaderSubject          = "X-Faucet-Subject"
	HeaderAccountCreatedAt = "X-Faucet-Account-Created-At"
)

var ErrInvalidRequestBody = errors.New("invalid request body")

// FaucetService is the part of the disbursement engine the handlers call.
type FaucetService interface {
	CheckEligibility(ctx context.Context, id identity.Identity) error
	Disburse(ctx context.Context, id identity.Identity, receivingAddress string) (*faucet.Receipt, error)
	WalletBalance(ctx context.Context) (uint64, error)
	History(ctx context.Context, id identity.Identity) ([]*store.HistoryRecord, error)
}

type Handler struct {
	logger  *slog.Logger
	service FaucetService
	salt    string
}

func NewHandler(logger *slog.Logger, service FaucetService, salt string) *Handler {
	return &Handler{
		logger:  logger.With(slog.String("service", "api")),
		service: service,
		salt:    salt,
	}
}

// RegisterRoutes attaches the faucet API under /api/v1.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	group := e.Group("/api/v1")

	group.GET("/balance", h.GetBalance)
	group.GET("/eligibility", h.GetEligibility)
	group.GET("/whoami", h.GetWhoami)
	group.GET("/history", h.GetHistory)
	group.POST("/payout", h.PostPayout)
}

type BalanceResponse struct {
	Satoshis uint64 `json:"satoshis"`
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type WhoamiResponse struct {
	UserHash         string `json:"userHash"`
	AccountCreatedAt string `json:"accountCreatedAt,omitempty"`
}

type PayoutRequest struct {
	Address string `json:"address"`
}

type PayoutResponse struct {
	TransactionID string `json:"txid"`
	Satoshis      int64  `json:"satoshis"`
}

type HistoryRecordResponse struct {
	TransactionID string    `json:"txid"`
	Satoshis      int64     `json:"satoshis"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) GetBalance(c echo.Context) error {
	balance, err := h.service.WalletBalance(c.Request().Context())
	if err != nil {
		return h.serverError(c, err)
	}

	return c.JSON(http.StatusOK, BalanceResponse{Satoshis: balance})
}

func (h *Handler) GetEligibility(c echo.Context) error {
	id := h.identityFromRequest(c)

	err := h.service.CheckEligibility(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, faucet.ErrNotEligible) {
			return c.JSON(http.StatusOK, EligibilityResponse{
				Eligible: false,
				Reason:   rejectionReason(err),
			})
		}

		return h.serverError(c, err)
	}

	return c.JSON(http.StatusOK, EligibilityResponse{Eligible: true})
}

func (h *Handler) GetWhoami(c echo.Context) error {
	id := h.identityFromRequest(c)

	return c.JSON(http.StatusOK, WhoamiResponse{
		UserHash:         id.UserHash,
		AccountCreatedAt: id.AccountCreatedAt,
	})
}

func (h *Handler) GetHistory(c echo.Context) error {
	id := h.identityFromRequest(c)

	records, err := h.service.History(c.Request().Context(), id)
	if err != nil {
		return h.serverError(c, err)
	}

	response := make([]HistoryRecordResponse, len(records))
	for index, record := range records {
		response[index] = HistoryRecordResponse{
			TransactionID: record.TransactionID,
			Satoshis:      record.Amount,
			CreatedAt:     record.CreatedAt,
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (h *Handler) PostPayout(c echo.Context) error {
	var request PayoutRequest
	err := c.Bind(&request)
	if err != nil || request.Address == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody.Error()})
	}

	id := h.identityFromRequest(c)

	receipt, err := h.service.Disburse(c.Request().Context(), id, request.Address)
	if err != nil {
		switch {
		case errors.Is(err, faucet.ErrNotEligible):
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: rejectionReason(err)})
		case errors.Is(err, wallet.ErrInvalidAddress):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: wallet.ErrInvalidAddress.Error()})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			// the faucet being empty is an operational detail, not the caller's business
			h.logger.Error("payout failed", slog.String("err", err.Error()))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "faucet is temporarily unavailable"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, PayoutResponse{
		TransactionID: receipt.TransactionID,
		Satoshis:      receipt.Amount,
	})
}

// identityFromRequest builds the caller's identity from the request headers.
// A missing identity is not an error here, the eligibility checks report it.
func (h *Handler) identityFromRequest(c echo.Context) identity.Identity {
	id := identity.Identity{
		Provider:         c.Request().Header.Get(HeaderProvider),
		Subject:          c.Request().Header.Get(HeaderSubject),
		UserHash:         c.Request().Header.Get(HeaderUserHash),
		AccountCreatedAt: c.Request().Header.Get(HeaderAccountCreatedAt),
	}

	if id.UserHash == "" && id.Provider != "" && id.Subject != "" {
		id.UserHash = identity.GenerateUserHash(h.salt, id.Provider, id.Subject)
	}

	return id
}

func (h *Handler) serverError(c echo.Context, err error) error {
	h.logger.Error("request failed", slog.String("err", err.Error()))

	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// rejectionReason strips the generic not-eligible prefix so the caller sees
// only the specific rule that failed.
func rejectionReason(err error) string {
	for _, reason := range []error{
		faucet.ErrUserHashMissing,
		faucet.ErrAccountCreatedAtMissing,
		faucet.ErrAccountCreatedAtInvalid,
		faucet.ErrAccountTooNew,
		faucet.ErrAlreadyReceived,
	} {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}

	return faucet.ErrNotEligible.Error()
}
