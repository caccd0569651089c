package model

import (
	"context"
	"sync"

	"github.com/matheus3301/wppdesk/internal/rpc"
)

// WorkflowStatuses is the cycle the operator steps through with `w`.
var WorkflowStatuses = []string{"queue", "attending", "waiting", "done"}

// NextWorkflowStatus returns the status after current in the cycle.
// Unknown statuses restart the cycle.
func NextWorkflowStatus(current string) string {
	for i, s := range WorkflowStatuses {
		if s == current {
			return WorkflowStatuses[(i+1)%len(WorkflowStatuses)]
		}
	}
	return WorkflowStatuses[0]
}

// ViewModel caches daemon state for the views.
type ViewModel struct {
	mu sync.RWMutex

	client        *rpc.Client
	Session       *rpc.SessionStatus
	Pairing       *rpc.Pairing
	Conversations []rpc.Conversation
	Messages      []rpc.Message
	ActivePeer    string
	Flash         Flash
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *rpc.Client) *ViewModel {
	return &ViewModel{client: c}
}

// LoadSessionStatus fetches current session status and, while pairing, the
// pending challenge.
func (vm *ViewModel) LoadSessionStatus(ctx context.Context) error {
	resp, err := vm.client.Session.GetStatus(ctx)
	if err != nil {
		return err
	}
	var pairing *rpc.Pairing
	if resp.PairingPending {
		pairing, _ = vm.client.Session.GetPairing(ctx)
	}
	vm.mu.Lock()
	vm.Session = resp
	vm.Pairing = pairing
	vm.mu.Unlock()
	return nil
}

// LoadConversations fetches the conversation list.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	resp, err := vm.client.Conversation.List(ctx, 200, 0)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.Conversations = resp.Conversations
	vm.mu.Unlock()
	return nil
}

// LoadMessages fetches recent messages of peer and makes it the active conversation.
func (vm *ViewModel) LoadMessages(ctx context.Context, peer string) error {
	resp, err := vm.client.Conversation.ListMessages(ctx, &rpc.ListMessagesRequest{Peer: peer, Limit: 100})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.ActivePeer = peer
	vm.Messages = resp.Messages
	vm.mu.Unlock()
	return nil
}

// CloseConversation clears the active conversation.
func (vm *ViewModel) CloseConversation() {
	vm.mu.Lock()
	vm.ActivePeer = ""
	vm.Messages = nil
	vm.mu.Unlock()
}

// SendText sends a text message to peer.
func (vm *ViewModel) SendText(ctx context.Context, peer, text string) error {
	_, err := vm.client.Message.SendText(ctx, peer, text)
	return err
}

// MarkRead marks peer's conversation read and returns how many messages changed.
func (vm *ViewModel) MarkRead(ctx context.Context, peer string) (int, error) {
	resp, err := vm.client.Conversation.MarkRead(ctx, peer)
	if err != nil {
		return 0, err
	}
	return resp.Marked, nil
}

// CycleWorkflow advances peer's workflow status and returns the new value.
func (vm *ViewModel) CycleWorkflow(ctx context.Context, peer string) (string, error) {
	next := NextWorkflowStatus(vm.workflowOf(peer))
	if err := vm.SetWorkflow(ctx, peer, next); err != nil {
		return "", err
	}
	return next, nil
}

// SetWorkflow sets peer's workflow status.
func (vm *ViewModel) SetWorkflow(ctx context.Context, peer, status string) error {
	if err := vm.client.Conversation.SetWorkflowStatus(ctx, peer, status); err != nil {
		return err
	}
	vm.mu.Lock()
	for i := range vm.Conversations {
		if vm.Conversations[i].JID == peer {
			vm.Conversations[i].WorkflowStatus = status
		}
	}
	vm.mu.Unlock()
	return nil
}

// Retry retransmits a pending message of peer.
func (vm *ViewModel) Retry(ctx context.Context, peer, id string) error {
	_, err := vm.client.Message.Retry(ctx, peer, id)
	return err
}

func (vm *ViewModel) workflowOf(peer string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.Conversations {
		if c.JID == peer {
			return c.WorkflowStatus
		}
	}
	return ""
}

// GetConversations returns a snapshot of the conversation list.
func (vm *ViewModel) GetConversations() []rpc.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Conversations
}

// GetMessages returns a snapshot of the active conversation's messages.
func (vm *ViewModel) GetMessages() []rpc.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Messages
}

// GetActivePeer returns the open conversation, if any.
func (vm *ViewModel) GetActivePeer() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.ActivePeer
}

// GetSession returns the last session status and pending pairing challenge.
func (vm *ViewModel) GetSession() (*rpc.SessionStatus, *rpc.Pairing) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Session, vm.Pairing
}

// DisplayName returns the conversation name for peer, or peer itself.
func (vm *ViewModel) DisplayName(peer string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.Conversations {
		if c.JID == peer && c.Name != "" {
			return c.Name
		}
	}
	return peer
}
