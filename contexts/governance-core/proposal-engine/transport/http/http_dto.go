package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ActionPayload struct {
	Target  string `json:"target"`
	Amount  uint64 `json:"amount"`
	Payload []byte `json:"payload,omitempty"`
}

type SubmitProposalRequest struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Actions     []ActionPayload `json:"actions"`
}

type ProposalResponse struct {
	ProposalID  uint64          `json:"proposal_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Proposer    string          `json:"proposer"`
	Actions     []ActionPayload `json:"actions"`
	YesWeight   uint64          `json:"yes_weight"`
	NoWeight    uint64          `json:"no_weight"`
	Status      string          `json:"status"`
	Passed      bool            `json:"passed"`
	CreatedAt   string          `json:"created_at"`
	FinalizedAt string          `json:"finalized_at,omitempty"`
}

type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
}

type ProposalStatusResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Status     string `json:"status"`
	Finalized  bool   `json:"finalized"`
}

type CastVoteRequest struct {
	Approve bool `json:"approve"`
}

type VoteResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Approve    bool   `json:"approve"`
	Weight     uint64 `json:"weight"`
	YesWeight  uint64 `json:"yes_weight"`
	NoWeight   uint64 `json:"no_weight"`
}

type CallResultPayload struct {
	Target string `json:"target"`
	Output []byte `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type ProcessResponse struct {
	ProposalID  uint64              `json:"proposal_id"`
	Passed      bool                `json:"passed"`
	CallResults []CallResultPayload `json:"call_results,omitempty"`
}

type ParametersResponse struct {
	VotingPeriodSeconds  uint64            `json:"voting_period_seconds"`
	QuorumPercent        uint64            `json:"quorum_percent"`
	SupermajorityPercent uint64            `json:"supermajority_percent"`
	Paused               bool              `json:"paused"`
	PoliciesInitialized  bool              `json:"policies_initialized"`
	Policies             map[string]string `json:"policies,omitempty"`
}

type InitPoliciesRequest struct {
	Mint string `json:"mint"`
	Burn string `json:"burn"`
	Call string `json:"call"`
	Gov  string `json:"gov"`
}

type ExtensionStatusResponse struct {
	Extension   string `json:"extension"`
	Whitelisted bool   `json:"whitelisted"`
}

type InvokeExtensionRequest struct {
	Amount  uint64 `json:"amount"`
	Payload []byte `json:"payload,omitempty"`
	Mint    bool   `json:"mint"`
}

type InvokeExtensionResponse struct {
	Extension string `json:"extension"`
	AmountOut uint64 `json:"amount_out"`
}

// BatchItem is one sub-call of the batched convenience path. Op selects the
// entry point; the matching request field carries its input.
type BatchItem struct {
	Op         string                 `json:"op"`
	ProposalID uint64                 `json:"proposal_id,omitempty"`
	Proposal   *SubmitProposalRequest `json:"proposal,omitempty"`
	Vote       *CastVoteRequest       `json:"vote,omitempty"`
}

type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

type BatchItemResult struct {
	Op       string            `json:"op"`
	Proposal *ProposalResponse `json:"proposal,omitempty"`
	Vote     *VoteResponse     `json:"vote,omitempty"`
	Process  *ProcessResponse  `json:"process,omitempty"`
}

type BatchResponse struct {
	Items []BatchItemResult `json:"items"`
}
