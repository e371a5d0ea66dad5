package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/solana"
)

type balanceResponse struct {
	Address   string     `json:"address"`
	Balance   string     `json:"balance"` // SOL
	Display   string     `json:"display"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// getBalance handles GET /api/v1/wallets/:address/balance?refresh=true.
func (s *Server) getBalance(c *gin.Context) {
	address := c.Param("address")
	force := c.Query("refresh") == "true"

	amount, err := s.readBalance(c.Request.Context(), address, force)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := balanceResponse{
		Address: address,
		Balance: amount.String(),
		Display: domain.FormatSOL(amount),
	}
	if cached, ok := s.deps.Balances.Lookup(address); ok {
		fetched := cached.FetchedAt
		resp.FetchedAt = &fetched
	}
	successResponse(c, http.StatusOK, "balance retrieved", resp)
}

// readBalance reads the connected wallet's balance through the flow, so it
// becomes the caller-side balance, and any other address from the reader.
func (s *Server) readBalance(ctx context.Context, address string, force bool) (decimal.Decimal, error) {
	if s.deps.Session != nil && s.deps.Flow != nil {
		if connected, ok := s.deps.Session.Address(); ok && connected.String() == address {
			return s.deps.Flow.RefreshBalance(ctx, address, force)
		}
	}
	return s.deps.Balances.GetBalance(ctx, address, force)
}

type validateResponse struct {
	Address string `json:"address"`
	Valid   bool   `json:"valid"`
	OnCurve bool   `json:"on_curve"`
}

// validateAddress handles GET /api/v1/wallets/:address/validate.
func (s *Server) validateAddress(c *gin.Context) {
	address := c.Param("address")
	resp := validateResponse{
		Address: address,
		Valid:   solana.IsValidAddress(address),
	}
	if resp.Valid {
		pk, _ := solana.ParsePublicKey(address)
		resp.OnCurve = pk.IsOnCurve()
	}
	successResponse(c, http.StatusOK, "address checked", resp)
}

type walletResponse struct {
	Installed bool   `json:"installed"`
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Display   string `json:"display,omitempty"`
}

func (s *Server) walletState() walletResponse {
	resp := walletResponse{Installed: s.deps.Session.Installed()}
	if address, ok := s.deps.Session.Address(); ok {
		resp.Connected = true
		resp.Address = address.String()
		resp.Display = domain.TruncateAddress(resp.Address)
	}
	return resp
}

// getWallet handles GET /api/v1/wallet.
func (s *Server) getWallet(c *gin.Context) {
	successResponse(c, http.StatusOK, "wallet state", s.walletState())
}

type connectRequest struct {
	OnlyIfTrusted bool `json:"only_if_trusted"`
}

// connectWallet handles POST /api/v1/wallet/connect. A silent connect that
// the wallet declines is not an error: the response reports connected=false.
func (s *Server) connectWallet(c *gin.Context) {
	var req connectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if _, _, err := s.deps.Session.Connect(c.Request.Context(), req.OnlyIfTrusted); err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "wallet state", s.walletState())
}

// disconnectWallet handles POST /api/v1/wallet/disconnect.
func (s *Server) disconnectWallet(c *gin.Context) {
	if err := s.deps.Session.Disconnect(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "wallet disconnected", s.walletState())
}
