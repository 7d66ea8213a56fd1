package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsv-faucet/faucet/internal/faucet"
	"github.com/bsv-faucet/faucet/internal/identity"
	"github.com/bsv-faucet/faucet/internal/store"
	"github.com/bsv-faucet/faucet/internal/wallet"
)

type stubService struct {
	eligibilityErr error
	disburseErr    error
	receipt        *faucet.Receipt
	balance        uint64
	balanceErr     error
	records        []*store.HistoryRecord

	disbursedTo string
	disbursedAs identity.Identity
}

func (s *stubService) CheckEligibility(_ context.Context, _ identity.Identity) error {
	return s.eligibilityErr
}

func (s *stubService) Disburse(_ context.Context, id identity.Identity, receivingAddress string) (*faucet.Receipt, error) {
	s.disbursedAs = id
	s.disbursedTo = receivingAddress

	if s.disburseErr != nil {
		return nil, s.disburseErr
	}

	return s.receipt, nil
}

func (s *stubService) WalletBalance(_ context.Context) (uint64, error) {
	return s.balance, s.balanceErr
}

func (s *stubService) History(_ context.Context, _ identity.Identity) ([]*store.HistoryRecord, error) {
	return s.records, nil
}

func testRequest(t *testing.T, service FaucetService, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	e := echo.New()
	NewHandler(logger, service, "test-salt").RegisterRoutes(e)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestGetBalance(t *testing.T) {
	t.Run("returns the wallet balance", func(t *testing.T) {
		rec := testRequest(t, &stubService{balance: 123_456}, http.MethodGet, "/api/v1/balance", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"satoshis":123456}`, rec.Body.String())
	})

	t.Run("wallet failure", func(t *testing.T) {
		rec := testRequest(t, &stubService{balanceErr: errors.New("connection refused")}, http.MethodGet, "/api/v1/balance", "", nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})
}

func TestGetEligibility(t *testing.T) {
	t.Run("eligible", func(t *testing.T) {
		rec := testRequest(t, &stubService{}, http.MethodGet, "/api/v1/eligibility", "", map[string]string{
			HeaderUserHash: "user-1",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"eligible":true}`, rec.Body.String())
	})

	t.Run("not eligible with reason", func(t *testing.T) {
		service := &stubService{
			eligibilityErr: errors.Join(faucet.ErrNotEligible, faucet.ErrAccountTooNew),
		}

		rec := testRequest(t, service, http.MethodGet, "/api/v1/eligibility", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"eligible":false,"reason":"user account is too new"}`, rec.Body.String())
	})

	t.Run("ledger failure", func(t *testing.T) {
		service := &stubService{
			eligibilityErr: errors.Join(faucet.ErrLedgerUnavailable, errors.New("connection refused")),
		}

		rec := testRequest(t, service, http.MethodGet, "/api/v1/eligibility", "", nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetWhoami(t *testing.T) {
	t.Run("explicit user hash wins", func(t *testing.T) {
		rec := testRequest(t, &stubService{}, http.MethodGet, "/api/v1/whoami", "", map[string]string{
			HeaderUserHash:         "explicit-hash",
			HeaderProvider:         "github",
			HeaderSubject:          "123456",
			HeaderAccountCreatedAt: "2020-01-01T00:00:00Z",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"userHash":"explicit-hash","accountCreatedAt":"2020-01-01T00:00:00Z"}`, rec.Body.String())
	})

	t.Run("hash derived from provider and subject", func(t *testing.T) {
		rec := testRequest(t, &stubService{}, http.MethodGet, "/api/v1/whoami", "", map[string]string{
			HeaderProvider: "github",
			HeaderSubject:  "123456",
		})

		require.Equal(t, http.StatusOK, rec.Code)

		expectedHash := identity.GenerateUserHash("test-salt", "github", "123456")
		assert.Contains(t, rec.Body.String(), expectedHash)
	})
}

func TestPostPayout(t *testing.T) {
	tt := []struct {
		name        string
		body        string
		disburseErr error
		receipt     *faucet.Receipt

		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "payout succeeds",
			body:    `{"address":"mqFeyyMpBAEHiiHC4RmLFGbvhdvxMwbiQm"}`,
			receipt: &faucet.Receipt{TransactionID: "deadbeef", Amount: 99_900_049},

			expectedStatus: http.StatusOK,
			expectedBody:   `{"txid":"deadbeef","satoshis":99900049}`,
		},
		{
			name: "missing address",
			body: `{}`,

			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "malformed body",
			body: `{"address":`,

			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
		{
			name:        "not eligible",
			body:        `{"address":"mqFeyyMpBAEHiiHC4RmLFGbvhdvxMwbiQm"}`,
			disburseErr: errors.Join(faucet.ErrNotEligible, faucet.ErrAlreadyReceived),

			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"error":"user account already received coins"}`,
		},
		{
			name:        "invalid address",
			body:        `{"address":"not-an-address"}`,
			disburseErr: errors.Join(wallet.ErrInvalidAddress, errors.New("checksum mismatch")),

			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid receiving address"}`,
		},
		{
			name:        "faucet empty",
			body:        `{"address":"mqFeyyMpBAEHiiHC4RmLFGbvhdvxMwbiQm"}`,
			disburseErr: errors.Join(wallet.ErrInsufficientFunds, errors.New("requested: 100 satoshis plus 1 fee, available: 0")),

			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"faucet is temporarily unavailable"}`,
		},
		{
			name:        "broadcast failure",
			body:        `{"address":"mqFeyyMpBAEHiiHC4RmLFGbvhdvxMwbiQm"}`,
			disburseErr: errors.Join(wallet.ErrBroadcastFailed, errors.New("connection refused")),

			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal error"}`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := &stubService{
				disburseErr: tc.disburseErr,
				receipt:     tc.receipt,
			}

			// when
			rec := testRequest(t, service, http.MethodPost, "/api/v1/payout", tc.body, map[string]string{
				HeaderUserHash: "user-1",
			})

			// then
			require.Equal(t, tc.expectedStatus, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())

			if tc.expectedStatus == http.StatusOK {
				assert.Equal(t, "mqFeyyMpBAEHiiHC4RmLFGbvhdvxMwbiQm", service.disbursedTo)
				assert.Equal(t, "user-1", service.disbursedAs.UserHash)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	// given
	createdAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service := &stubService{
		records: []*store.HistoryRecord{
			{ID: 1, UserHash: "user-1", TransactionID: "deadbeef", Amount: 99_900_049, CreatedAt: createdAt},
		},
	}

	// when
	rec := testRequest(t, service, http.MethodGet, "/api/v1/history", "", map[string]string{
		HeaderUserHash: "user-1",
	})

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"txid":"deadbeef","satoshis":99900049,"createdAt":"2025-06-15T12:00:00Z"}]`, rec.Body.String())
}
