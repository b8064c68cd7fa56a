package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	domainerrors "conclave/contexts/governance-core/proposal-engine/domain/errors"
	governancehttp "conclave/contexts/governance-core/proposal-engine/transport/http"
	"conclave/internal/platform/metrics"
)

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.SubmitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.SubmitProposalHandler(r.Context(), userID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	metrics.ProposalsSubmitted.WithLabelValues(resp.Type).Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListProposalsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetProposalHandler(r.Context(), id)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProposalStatusHandler(r.Context(), id)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}

	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), id, userID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	metrics.VotesCast.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProcessProposalHandler(r.Context(), id)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	outcome := metrics.OutcomeFailed
	if resp.Passed {
		outcome = metrics.OutcomePassed
	}
	metrics.ProposalsProcessed.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	id, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.CancelProposalHandler(r.Context(), id, userID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, governancehttp.ProposalStatusResponse{
		ProposalID: id,
		Status:     "cancelled",
		Finalized:  true,
	})
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ParametersHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInitPolicies(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.InitPoliciesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.InitPoliciesHandler(r.Context(), req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExtensionStatus(w http.ResponseWriter, r *http.Request) {
	extension := r.PathValue("extension")
	resp, err := s.governance.Handler.ExtensionStatusHandler(r.Context(), extension)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInvokeExtension(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	extension := r.PathValue("extension")

	var req governancehttp.InvokeExtensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.InvokeExtensionHandler(r.Context(), extension, userID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.BatchHandler(r.Context(), userID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("proposal_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrProposalNotFound):
		writeGovernanceError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidProposalInput),
		errors.Is(err, domainerrors.ErrTooManyActions),
		errors.Is(err, domainerrors.ErrVotingPeriodBounds),
		errors.Is(err, domainerrors.ErrQuorumBounds),
		errors.Is(err, domainerrors.ErrSupermajorityBounds),
		errors.Is(err, domainerrors.ErrInvalidTallyPolicy),
		errors.Is(err, domainerrors.ErrInvalidCharter):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrNoVotingWeight),
		errors.Is(err, domainerrors.ErrNotProposer),
		errors.Is(err, domainerrors.ErrExtensionNotWhitelisted):
		writeGovernanceError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyProcessed):
		writeGovernanceError(w, http.StatusConflict, "already_processed", err.Error())
	case errors.Is(err, domainerrors.ErrPredecessorPending):
		writeGovernanceError(w, http.StatusConflict, "predecessor_pending", err.Error())
	case errors.Is(err, domainerrors.ErrVotingWindowClosed):
		writeGovernanceError(w, http.StatusConflict, "voting_window_closed", err.Error())
	case errors.Is(err, domainerrors.ErrVotingWindowOpen):
		writeGovernanceError(w, http.StatusConflict, "voting_window_open", err.Error())
	case errors.Is(err, domainerrors.ErrProposalHasVotes):
		writeGovernanceError(w, http.StatusConflict, "proposal_has_votes", err.Error())
	case errors.Is(err, domainerrors.ErrPoliciesLatched),
		errors.Is(err, domainerrors.ErrPoliciesNotSet),
		errors.Is(err, domainerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domainerrors.ErrSupplyOverflow),
		errors.Is(err, domainerrors.ErrInsufficientBalance):
		writeGovernanceError(w, http.StatusConflict, "ledger_conflict", err.Error())
	case errors.Is(err, domainerrors.ErrReentrantCall):
		writeGovernanceError(w, http.StatusLocked, "reentrant_call", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
