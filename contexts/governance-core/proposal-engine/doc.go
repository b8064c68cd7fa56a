// Package proposalengine implements the proposal lifecycle for the
// governance-core context.
//
// The module owns proposal submission, snapshot-weighted voting, sequential
// tally/execution, extension whitelisting, and governance-parameter
// mutation. Token accounting (balances, historical voting-weight snapshots,
// mint/burn, delegation) is an external collaborator reached through ports,
// as are arbitrary call targets and whitelisted extensions. Business rules
// live in application/domain layers; infrastructure stays behind adapters.
package proposalengine
