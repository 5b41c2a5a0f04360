package callsession

import (
	"context"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
)

// Store persists what a session produces. Implementations are bound to a single user.
type Store interface {
	InitiateCall(ctx context.Context, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error)
	UpdateCallStatus(ctx context.Context, callID uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error)
	UpdateLead(ctx context.Context, leadID uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error)
}

// FlowStore writes straight through the business flows on behalf of one user
type FlowStore struct {
	userID  uint
	leads   businessflow.LeadFlow
	history businessflow.CallHistoryFlow
}

func NewFlowStore(userID uint, leads businessflow.LeadFlow, history businessflow.CallHistoryFlow) *FlowStore {
	return &FlowStore{userID: userID, leads: leads, history: history}
}

func (s *FlowStore) InitiateCall(ctx context.Context, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error) {
	return s.history.InitiateCall(ctx, s.userID, req)
}

func (s *FlowStore) UpdateCallStatus(ctx context.Context, callID uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error) {
	return s.history.UpdateCallStatus(ctx, s.userID, callID, req)
}

func (s *FlowStore) UpdateLead(ctx context.Context, leadID uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error) {
	return s.leads.UpdateLead(ctx, s.userID, leadID, req)
}
