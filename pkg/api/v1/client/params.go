package client

import (
	"fmt"

	"github.com/bucketsio/workflow/pkg/work"
)

// WithdrawParams defines the filters for claiming one queued work item.
// Pipeline is required; every other filter is optional and narrows the pool
// of claimable items.
type WithdrawParams struct {
	Pipeline string   `json:"pipeline"`
	Event    []int    `json:"event,omitempty"`
	Site     string   `json:"site,omitempty"`
	Priority int      `json:"priority,omitempty"`
	User     string   `json:"user,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Parent   string   `json:"parent,omitempty"`
}

// Validate validates the withdraw filters
func (p WithdrawParams) Validate() error {
	if p.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if p.Priority != 0 && (p.Priority < work.MinPriority || p.Priority > work.MaxPriority) {
		return fmt.Errorf("priority must be in [%d, %d]", work.MinPriority, work.MaxPriority)
	}
	return nil
}

// DepositResponse is the backend response to a deposit request
type DepositResponse struct {
	IDs []string `json:"ids,omitempty"`
}
