package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/dao"
	"SavingsDAO/internal/model"

	"github.com/go-chi/chi/v5"
)

const (
	// CallerHeader carries the acting address, set by the authenticating
	// gateway in front of the API.
	CallerHeader = "X-Caller-Address"
	// GatewayHeader proves a request passed through that gateway.
	GatewayHeader = "X-Gateway-Token"
)

// Auth holds the API credentials. An empty AdminToken disables the
// owner routes; an empty GatewayToken accepts CallerHeader only from
// loopback peers.
type Auth struct {
	AdminToken   string
	GatewayToken string
}

type Server struct {
	svc  *dao.Service
	auth Auth
}

func NewServer(svc *dao.Service, auth Auth) *Server {
	return &Server{svc: svc, auth: auth}
}

// Router returns the HTTP routes of the treasury.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/summary", s.summary)
	r.Get("/accounts/{address}", s.account)
	r.Get("/governance", s.governance)
	r.Get("/proposals", s.listProposals)
	r.Get("/proposals/{id}", s.getProposal)
	r.Get("/proposals/{id}/authorization", s.authorization)
	r.Get("/regulations/{scope}/{key}", s.regulation)

	r.Group(func(r chi.Router) {
		r.Use(s.requireMember)
		r.Post("/deposits", s.amountOp(s.svc.Deposit))
		r.Post("/withdrawals", s.amountOp(s.svc.Withdraw))
		r.Post("/rewards/deposits", s.amountOp(s.svc.DepositReward))
		r.Post("/rewards/withdrawals", s.amountOp(s.svc.WithdrawReward))
		r.Post("/agreement", s.acceptAgreement)
		r.Post("/membership/forfeit", s.forfeit)
		r.Post("/proposals", s.proposeActivity)
		r.Post("/proposals/{id}/votes", s.vote)
		r.Post("/proposals/sweep", s.sweep)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/rewards/fund", s.amountOp(s.svc.FundRewards))
		r.Post("/airdrops", s.airdrop)
		r.Post("/members", s.addMember)
		r.Post("/ownership", s.transferOwnership)
		r.Post("/proposals/{id}/withdraw", s.proposalAmountOp(s.svc.WithdrawAmount))
		r.Post("/proposals/{id}/refund", s.proposalAmountOp(s.svc.RefundWithdrawnAmount))
		r.Put("/regulations/{scope}/{key}", s.setRegulation)
	})
	return r
}

type callerKey struct{}

// requireMember resolves the caller from CallerHeader once the request
// is known to come from the gateway.
func (s *Server) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth.GatewayToken != "" {
			if !tokenEqual(r.Header.Get(GatewayHeader), s.auth.GatewayToken) {
				WriteError(w, http.StatusForbidden, "UNAUTHORIZED", "request did not pass the gateway", nil)
				return
			}
		} else if !fromLoopback(r) {
			WriteError(w, http.StatusForbidden, "UNAUTHORIZED", "caller header is only trusted from loopback", nil)
			return
		}
		addr := strings.TrimSpace(r.Header.Get(CallerHeader))
		if addr == "" {
			WriteError(w, http.StatusUnauthorized, "MISSING_CALLER", CallerHeader+" header is required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, model.Address(addr))))
	})
}

// requireAdmin checks the bearer token and acts as the current owner.
// CallerHeader is ignored on these routes.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.auth.AdminToken == "" || !ok || !tokenEqual(token, s.auth.AdminToken) {
			WriteError(w, http.StatusForbidden, "UNAUTHORIZED", "owner routes require the admin bearer token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, s.svc.Owner())))
	})
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func fromLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func caller(r *http.Request) model.Address {
	addr, _ := r.Context().Value(callerKey{}).(model.Address)
	return addr
}

func proposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_ID", "proposal id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

type amountRequest struct {
	Amount model.Amount `json:"amount"`
}

func (s *Server) amountOp(op func(model.Address, model.Amount) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req amountRequest
		if err := ReadJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
			return
		}
		if err := op(caller(r), req.Amount); err != nil {
			writeServiceError(w, err)
			return
		}
		reply(w, http.StatusOK, map[string]any{"account": s.svc.Balance(caller(r))})
	}
}

func (s *Server) proposalAmountOp(op func(model.Address, uint64, model.Amount) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := proposalID(w, r)
		if !ok {
			return
		}
		var req amountRequest
		if err := ReadJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
			return
		}
		if err := op(caller(r), id, req.Amount); err != nil {
			writeServiceError(w, err)
			return
		}
		auth, _ := s.svc.Authorization(id)
		reply(w, http.StatusOK, map[string]any{"authorization": auth})
	}
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]any{"summary": s.svc.Summary()})
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	addr := model.Address(chi.URLParam(r, "address"))
	reply(w, http.StatusOK, map[string]any{
		"account":            s.svc.Balance(addr),
		"agreement_accepted": s.svc.IsAccepted(addr),
	})
}

func (s *Server) airdrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total      model.Amount    `json:"total"`
		Recipients []model.Address `json:"recipients"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	credits, err := s.svc.DistributeAirdrop(caller(r), req.Total, req.Recipients)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(credits))
	for _, c := range credits {
		out = append(out, map[string]any{"user": c.User, "amount": c.Amount})
	}
	reply(w, http.StatusOK, map[string]any{"credits": out})
}

func (s *Server) acceptAgreement(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.AcceptAgreement(caller(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{"accepted": true})
}

func (s *Server) forfeit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ForfeitMembership(caller(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{"account": s.svc.Balance(caller(r))})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User model.Address `json:"user"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := s.svc.AddMember(caller(r), req.User); err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusCreated, map[string]any{"account": s.svc.Balance(req.User)})
}

func (s *Server) transferOwnership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewOwner model.Address `json:"new_owner"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := s.svc.TransferOwnership(caller(r), req.NewOwner); err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{"owner": s.svc.Owner()})
}

func (s *Server) proposeActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		// Duration is a Go duration string such as "72h".
		Duration string `json:"duration"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_DURATION", err.Error(), nil)
		return
	}
	p, err := s.svc.ProposeActivity(caller(r), req.Description, d)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusCreated, map[string]any{"proposal": newProposalView(p)})
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	var req struct {
		Support bool `json:"support"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	out, err := s.svc.Vote(caller(r), id, req.Support)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{
		"proposal": newProposalView(out.Proposal),
		"weight":   out.Weight,
		"accepted": out.Accepted,
		"granted":  out.Granted,
	})
}

func (s *Server) setRegulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	scope := compliance.Scope(chi.URLParam(r, "scope"))
	if err := s.svc.SetRegulation(caller(r), scope, chi.URLParam(r, "key"), req.Text); err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, nil)
}

func (s *Server) regulation(w http.ResponseWriter, r *http.Request) {
	scope := compliance.Scope(chi.URLParam(r, "scope"))
	text, err := s.svc.Regulation(scope, chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{"text": text})
}

func (s *Server) governance(w http.ResponseWriter, r *http.Request) {
	sum := s.svc.Summary()
	reply(w, http.StatusOK, map[string]any{
		"total_voting_power": sum.VotingPower,
		"member_count":       sum.Members,
		"required_weight":    sum.RequiredWeight,
		"current_proposer":   sum.CurrentProposer,
	})
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	proposals := s.svc.Proposals()
	out := make([]proposalView, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, newProposalView(p))
	}
	reply(w, http.StatusOK, map[string]any{"proposals": out})
}

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Proposal(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]any{"proposal": newProposalView(p)})
}

func (s *Server) authorization(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	auth, found := s.svc.Authorization(id)
	if !found {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "no withdrawal authorization for proposal", map[string]any{"proposal_id": id})
		return
	}
	reply(w, http.StatusOK, map[string]any{"authorization": auth})
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	expired, err := s.svc.SweepExpired()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ids := make([]uint64, 0, len(expired))
	for _, p := range expired {
		ids = append(ids, p.ID)
	}
	reply(w, http.StatusOK, map[string]any{"expired": ids})
}

// proposalView prints kind and state as words.
type proposalView struct {
	ID             uint64          `json:"id"`
	Proposer       model.Address   `json:"proposer"`
	Kind           string          `json:"kind"`
	Description    string          `json:"description"`
	ForWeight      uint64          `json:"for_weight"`
	RequiredWeight uint64          `json:"required_weight"`
	CreatedAt      time.Time       `json:"created_at"`
	EndTime        time.Time       `json:"end_time"`
	State          string          `json:"state"`
	Voters         []model.Address `json:"voters"`
}

func newProposalView(p model.Proposal) proposalView {
	voters := p.Voters
	if voters == nil {
		voters = []model.Address{}
	}
	return proposalView{
		ID:             p.ID,
		Proposer:       p.Proposer,
		Kind:           p.Kind.String(),
		Description:    p.Description,
		ForWeight:      p.ForWeight,
		RequiredWeight: p.RequiredWeight,
		CreatedAt:      p.CreatedAt,
		EndTime:        p.EndTime,
		State:          p.State.String(),
		Voters:         voters,
	}
}
