package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"tokengate/internal/audit"
	"tokengate/internal/domain"
	"tokengate/internal/events"
	"tokengate/internal/idhash"
	"tokengate/internal/journal"
	"tokengate/internal/ledger"
	"tokengate/internal/observability"
	"tokengate/internal/orchestrator"
	"tokengate/internal/policy"
)

// Server holds the HTTP surface over the ledger core.
type Server struct {
	ledger    ledger.Ledger
	registry  *policy.Registry
	pause     *policy.PauseSwitch
	orch      *orchestrator.Orchestrator
	auditor   *audit.Auditor
	hub       *events.Hub
	metrics   *observability.Metrics
	transfers journal.TransferStore
	changes   journal.PolicyChangeStore
	logger    *log.Logger
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.hub.ServeHTTP(w, r)
		s.metrics.WSSubscribers.Set(float64(s.hub.SubscriberCount()))
	})

	mux.HandleFunc("POST /api/v1/transfer", s.handleTransfer)
	mux.HandleFunc("POST /api/v1/transfer-from", s.handleTransferFrom)
	mux.HandleFunc("POST /api/v1/approve", s.handleApprove)

	mux.HandleFunc("GET /api/v1/balance", s.handleBalance)
	mux.HandleFunc("GET /api/v1/allowance", s.handleAllowance)
	mux.HandleFunc("GET /api/v1/supply", s.handleSupply)
	mux.HandleFunc("GET /api/v1/policy", s.handlePolicy)
	mux.HandleFunc("GET /api/v1/blacklist/history", s.handleBlacklistHistory)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/changes", s.handleChanges)
	mux.HandleFunc("GET /api/v1/audit", s.handleAudit)

	mux.HandleFunc("POST /api/v1/admin/features", s.handleSetFeature)
	mux.HandleFunc("POST /api/v1/admin/fees", s.handleSetFees)
	mux.HandleFunc("POST /api/v1/admin/limits", s.handleSetLimits)
	mux.HandleFunc("POST /api/v1/admin/blacklist", s.handleSetBlacklisted)
	mux.HandleFunc("POST /api/v1/admin/exclusions", s.handleSetFeeExcluded)
	mux.HandleFunc("POST /api/v1/admin/enable-trading", s.handleEnableTrading)
	mux.HandleFunc("POST /api/v1/admin/pause", s.handleSetPaused)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrBlacklisted):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyEnabled):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTradingNotEnabled),
		errors.Is(err, domain.ErrExceedsMaxTransaction),
		errors.Is(err, domain.ErrExceedsMaxWallet),
		errors.Is(err, domain.ErrCooldownActive),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientAllowance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrReentrantCall):
		status = http.StatusServiceUnavailable
	case errors.Is(err, journal.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func parseAddr(w http.ResponseWriter, field, s string) (domain.Address, bool) {
	addr, err := domain.ParseAddress(s)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: field + ": " + err.Error()})
		return domain.Address{}, false
	}
	return addr, true
}

func parseAmountField(w http.ResponseWriter, s string) (*uint256.Int, bool) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount: " + err.Error()})
		return nil, false
	}
	return v, true
}

// receiptResponse is the JSON shape of a committed transfer.
type receiptResponse struct {
	TransferID       string `json:"transfer_id"`
	Amount           string `json:"amount"`
	NetAmount        string `json:"net_amount"`
	TotalFee         string `json:"total_fee"`
	Reflection       string `json:"reflection"`
	Liquidity        string `json:"liquidity"`
	Marketing        string `json:"marketing"`
	Burned           string `json:"burned"`
	RatePct          uint64 `json:"rate_pct"`
	SurchargeApplied bool   `json:"surcharge_applied"`
	ExecutedAt       int64  `json:"executed_at"`
}

func toReceiptResponse(r *orchestrator.Receipt) receiptResponse {
	return receiptResponse{
		TransferID:       r.TransferID,
		Amount:           r.Amount.Dec(),
		NetAmount:        r.NetAmount.Dec(),
		TotalFee:         r.TotalFee.Dec(),
		Reflection:       r.Reflection.Dec(),
		Liquidity:        r.Liquidity.Dec(),
		Marketing:        r.Marketing.Dec(),
		Burned:           r.Burned.Dec(),
		RatePct:          r.RatePct,
		SurchargeApplied: r.SurchargeApplied,
		ExecutedAt:       r.ExecutedAt.UnixMilli(),
	}
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Amount    string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sender, ok := parseAddr(w, "sender", req.Sender)
	if !ok {
		return
	}
	recipient, ok := parseAddr(w, "recipient", req.Recipient)
	if !ok {
		return
	}
	amount, ok := parseAmountField(w, req.Amount)
	if !ok {
		return
	}

	receipt, err := s.orch.Transfer(r.Context(), sender, recipient, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spender   string `json:"spender"`
		Owner     string `json:"owner"`
		Recipient string `json:"recipient"`
		Amount    string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	spender, ok := parseAddr(w, "spender", req.Spender)
	if !ok {
		return
	}
	owner, ok := parseAddr(w, "owner", req.Owner)
	if !ok {
		return
	}
	recipient, ok := parseAddr(w, "recipient", req.Recipient)
	if !ok {
		return
	}
	amount, ok := parseAmountField(w, req.Amount)
	if !ok {
		return
	}

	receipt, err := s.orch.TransferFrom(r.Context(), spender, owner, recipient, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner   string `json:"owner"`
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddr(w, "owner", req.Owner)
	if !ok {
		return
	}
	spender, ok := parseAddr(w, "spender", req.Spender)
	if !ok {
		return
	}
	amount, ok := parseAmountField(w, req.Amount)
	if !ok {
		return
	}

	if err := s.ledger.Approve(r.Context(), owner, spender, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": amount.Dec(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddr(w, "address", r.URL.Query().Get("address"))
	if !ok {
		return
	}
	balance, err := s.ledger.BalanceOf(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": addr.String(),
		"balance": balance.Dec(),
	})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseAddr(w, "owner", r.URL.Query().Get("owner"))
	if !ok {
		return
	}
	spender, ok := parseAddr(w, "spender", r.URL.Query().Get("spender"))
	if !ok {
		return
	}
	allowance, err := s.ledger.Allowance(r.Context(), owner, spender)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"owner":     owner.String(),
		"spender":   spender.String(),
		"allowance": allowance.Dec(),
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := s.ledger.TotalSupply(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	burned, err := s.auditor.BurnedSupply(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	circulating := supply.Clone()
	circulating.Sub(circulating, burned)
	writeJSON(w, http.StatusOK, map[string]string{
		"total_supply": supply.Dec(),
		"burned":       burned.Dec(),
		"circulating":  circulating.Dec(),
	})
}

// policyResponse is the full policy snapshot.
type policyResponse struct {
	Owner    string `json:"owner"`
	Features struct {
		Reflection    bool `json:"reflection"`
		AntiWhale     bool `json:"anti_whale"`
		AutoLiquidity bool `json:"auto_liquidity"`
		Cooldown      bool `json:"cooldown"`
		Blacklist     bool `json:"blacklist"`
		AutoBurn      bool `json:"auto_burn"`
	} `json:"features"`
	Fees struct {
		ReflectionPct uint64 `json:"reflection_pct"`
		LiquidityPct  uint64 `json:"liquidity_pct"`
		MarketingPct  uint64 `json:"marketing_pct"`
		BurnPct       uint64 `json:"burn_pct"`
	} `json:"fees"`
	Limits struct {
		MaxTransaction  string `json:"max_transaction,omitempty"`
		MaxWallet       string `json:"max_wallet,omitempty"`
		CooldownSeconds int64  `json:"cooldown_seconds"`
	} `json:"limits"`
	TradingEnabled bool      `json:"trading_enabled"`
	LaunchedAt     time.Time `json:"launched_at,omitempty"`
	Paused         bool      `json:"paused"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	var resp policyResponse
	resp.Owner = s.registry.Owner().String()

	features := s.registry.Features()
	resp.Features.Reflection = features.Reflection
	resp.Features.AntiWhale = features.AntiWhale
	resp.Features.AutoLiquidity = features.AutoLiquidity
	resp.Features.Cooldown = features.Cooldown
	resp.Features.Blacklist = features.Blacklist
	resp.Features.AutoBurn = features.AutoBurn

	fees := s.registry.Fees()
	resp.Fees.ReflectionPct = fees.ReflectionPct
	resp.Fees.LiquidityPct = fees.LiquidityPct
	resp.Fees.MarketingPct = fees.MarketingPct
	resp.Fees.BurnPct = fees.BurnPct

	limits := s.registry.Limits()
	if limits.MaxTransaction != nil {
		resp.Limits.MaxTransaction = limits.MaxTransaction.Dec()
	}
	if limits.MaxWallet != nil {
		resp.Limits.MaxWallet = limits.MaxWallet.Dec()
	}
	resp.Limits.CooldownSeconds = int64(limits.Cooldown / time.Second)

	trading := s.registry.Trading()
	resp.TradingEnabled = trading.Enabled
	resp.LaunchedAt = trading.LaunchedAt
	resp.Paused = s.pause.Paused()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBlacklistHistory(w http.ResponseWriter, r *http.Request) {
	history := s.registry.BlacklistHistory()
	out := make([]string, 0, len(history))
	for _, a := range history {
		out = append(out, a.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if addr := q.Get("address"); addr != "" {
		records, err := s.transfers.GetByAccount(r.Context(), addr)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": records})
		return
	}
	if id := q.Get("id"); id != "" {
		record, err := s.transfers.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	start, err := strconv.ParseInt(q.Get("from"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from: expected unix millis"})
		return
	}
	end, err := strconv.ParseInt(q.Get("to"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to: expected unix millis"})
		return
	}
	records, err := s.transfers.GetByTimeRange(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	var (
		changes []*domain.PolicyChange
		err     error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		changes, err = s.changes.GetByKind(r.Context(), kind)
	} else {
		changes, err = s.changes.GetAll(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditor.Check(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// recordChange journals a committed policy mutation. Best effort: a failed
// write is logged, the mutation stands.
func (s *Server) recordChange(ctx context.Context, kind string, actor, subject domain.Address, detail any) {
	now := time.Now().UnixMilli()
	subj := ""
	if !subject.IsZero() {
		subj = subject.String()
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		payload = []byte("{}")
	}
	change := &domain.PolicyChange{
		ChangeID:  idhash.ComputeChangeID(kind, actor.String(), subj, now),
		Kind:      kind,
		Actor:     actor.String(),
		Subject:   subj,
		Detail:    string(payload),
		ChangedAt: now,
	}
	if err := s.changes.Insert(ctx, change); err != nil {
		s.logger.Printf("Journal write for %s change failed: %v", kind, err)
		s.metrics.JournalWriteErrors.Inc()
		return
	}
	s.metrics.PolicyUpdates.WithLabelValues(kind).Inc()
}

func (s *Server) handleSetFeature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string `json:"caller"`
		Flag    string `json:"flag"`
		Enabled bool   `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	if err := s.registry.SetFeatureFlag(caller, req.Flag, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	known := domain.ParseFeatureFlag(req.Flag) != domain.FeatureUnknown
	s.recordChange(r.Context(), domain.PolicyChangeFeature, caller, domain.Address{}, map[string]any{
		"flag": req.Flag, "enabled": req.Enabled, "known": known,
	})
	writeJSON(w, http.StatusOK, map[string]any{"flag": req.Flag, "enabled": req.Enabled, "known": known})
}

func (s *Server) handleSetFees(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller        string `json:"caller"`
		ReflectionPct uint64 `json:"reflection_pct"`
		LiquidityPct  uint64 `json:"liquidity_pct"`
		MarketingPct  uint64 `json:"marketing_pct"`
		BurnPct       uint64 `json:"burn_pct"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	before := s.registry.Fees()
	schedule := domain.FeeSchedule{
		ReflectionPct: req.ReflectionPct,
		LiquidityPct:  req.LiquidityPct,
		MarketingPct:  req.MarketingPct,
		BurnPct:       req.BurnPct,
	}
	if err := s.registry.SetFees(caller, schedule); err != nil {
		writeError(w, err)
		return
	}
	s.recordChange(r.Context(), domain.PolicyChangeFees, caller, domain.Address{}, map[string]any{
		"before": [4]uint64{before.ReflectionPct, before.LiquidityPct, before.MarketingPct, before.BurnPct},
		"after":  [4]uint64{schedule.ReflectionPct, schedule.LiquidityPct, schedule.MarketingPct, schedule.BurnPct},
	})
	writeJSON(w, http.StatusOK, map[string]uint64{
		"reflection_pct": schedule.ReflectionPct,
		"liquidity_pct":  schedule.LiquidityPct,
		"marketing_pct":  schedule.MarketingPct,
		"burn_pct":       schedule.BurnPct,
		"sum_pct":        schedule.Sum(),
	})
}

func (s *Server) handleSetLimits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller          string `json:"caller"`
		MaxTransaction  string `json:"max_transaction"`
		MaxWallet       string `json:"max_wallet"`
		CooldownSeconds int64  `json:"cooldown_seconds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	limits := domain.Limits{Cooldown: time.Duration(req.CooldownSeconds) * time.Second}
	if req.MaxTransaction != "" {
		v, ok := parseAmountField(w, req.MaxTransaction)
		if !ok {
			return
		}
		limits.MaxTransaction = v
	}
	if req.MaxWallet != "" {
		v, ok := parseAmountField(w, req.MaxWallet)
		if !ok {
			return
		}
		limits.MaxWallet = v
	}
	if err := s.registry.SetLimits(caller, limits); err != nil {
		writeError(w, err)
		return
	}
	s.recordChange(r.Context(), domain.PolicyChangeLimits, caller, domain.Address{}, map[string]any{
		"max_transaction":  req.MaxTransaction,
		"max_wallet":       req.MaxWallet,
		"cooldown_seconds": req.CooldownSeconds,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"max_transaction":  req.MaxTransaction,
		"max_wallet":       req.MaxWallet,
		"cooldown_seconds": req.CooldownSeconds,
	})
}

func (s *Server) handleSetBlacklisted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		Address     string `json:"address"`
		Blacklisted bool   `json:"blacklisted"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	addr, ok := parseAddr(w, "address", req.Address)
	if !ok {
		return
	}
	if err := s.registry.SetBlacklisted(caller, addr, req.Blacklisted); err != nil {
		writeError(w, err)
		return
	}
	if req.Blacklisted {
		s.metrics.BlacklistedNow.Inc()
	} else {
		s.metrics.BlacklistedNow.Dec()
	}
	s.recordChange(r.Context(), domain.PolicyChangeBlacklist, caller, addr, map[string]any{
		"blacklisted": req.Blacklisted,
	})
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.String(), "blacklisted": req.Blacklisted})
}

func (s *Server) handleSetFeeExcluded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller   string `json:"caller"`
		Address  string `json:"address"`
		Excluded bool   `json:"excluded"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	addr, ok := parseAddr(w, "address", req.Address)
	if !ok {
		return
	}
	if err := s.registry.SetFeeExcluded(caller, addr, req.Excluded); err != nil {
		writeError(w, err)
		return
	}
	s.recordChange(r.Context(), domain.PolicyChangeExclusion, caller, addr, map[string]any{
		"excluded": req.Excluded,
	})
	writeJSON(w, http.StatusOK, map[string]any{"address": addr.String(), "excluded": req.Excluded})
}

func (s *Server) handleEnableTrading(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	if err := s.registry.EnableTrading(caller); err != nil {
		writeError(w, err)
		return
	}
	trading := s.registry.Trading()
	s.recordChange(r.Context(), domain.PolicyChangeTrading, caller, domain.Address{}, map[string]any{
		"launched_at": trading.LaunchedAt.UnixMilli(),
	})
	writeJSON(w, http.StatusOK, map[string]any{"trading_enabled": true, "launched_at": trading.LaunchedAt})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Paused bool   `json:"paused"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddr(w, "caller", req.Caller)
	if !ok {
		return
	}
	if err := s.pause.SetPaused(caller, req.Paused); err != nil {
		writeError(w, err)
		return
	}
	s.recordChange(r.Context(), domain.PolicyChangePause, caller, domain.Address{}, map[string]any{
		"paused": req.Paused,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}
