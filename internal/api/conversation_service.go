package api

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/matheus3301/wppdesk/internal/bus"
	"github.com/matheus3301/wppdesk/internal/media"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// PeerActions are the conversation operations that reach the network.
// MarkRead returns how many messages changed.
type PeerActions interface {
	MarkRead(ctx context.Context, peer string) (int, error)
	RefreshAvatar(ctx context.Context, peer string) (*store.Conversation, error)
}

// ConversationService implements rpc.ConversationServer.
type ConversationService struct {
	db       *store.DB
	media    *media.Store
	peers    PeerActions
	bus      *bus.Bus
	validate *validator.Validate
	logger   *zap.Logger
}

var _ rpc.ConversationServer = (*ConversationService)(nil)

// NewConversationService creates a new conversation service.
func NewConversationService(db *store.DB, ms *media.Store, peers PeerActions, b *bus.Bus, logger *zap.Logger) *ConversationService {
	return &ConversationService{
		db:       db,
		media:    ms,
		peers:    peers,
		bus:      b,
		validate: newValidator(),
		logger:   logger.Named("api"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

func pageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	return min(n, maxPageSize)
}

func (s *ConversationService) List(_ context.Context, req *rpc.ListConversationsRequest) (*rpc.ConversationList, error) {
	if req.Offset < 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "offset must not be negative")
	}
	convs, err := s.db.ListConversations(pageSize(req.Limit), req.Offset)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list conversations: %v", err)
	}
	total, err := s.db.ConversationCount()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count conversations: %v", err)
	}
	resp := &rpc.ConversationList{Conversations: make([]rpc.Conversation, 0, len(convs)), Total: total}
	for i := range convs {
		resp.Conversations = append(resp.Conversations, conversationToRPC(&convs[i]))
	}
	return resp, nil
}

func (s *ConversationService) Get(_ context.Context, req *rpc.PeerRequest) (*rpc.ConversationDetail, error) {
	peer := peerJID(req.Peer)
	conv, err := s.db.GetConversation(peer)
	if err != nil {
		return nil, toStatus("get conversation", err)
	}
	msgs, err := s.db.ListMessages(peer, 0, defaultPageSize)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	resp := &rpc.ConversationDetail{
		Conversation: conversationToRPC(conv),
		Messages:     make([]rpc.Message, 0, len(msgs)),
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, messageToRPC(&msgs[i]))
	}
	return resp, nil
}

type workflowChange struct {
	Peer   string `validate:"required,notblank"`
	Status string `validate:"required,notblank,max=64"`
}

func (s *ConversationService) SetWorkflowStatus(_ context.Context, req *rpc.WorkflowRequest) (*rpc.Empty, error) {
	wc := workflowChange{Peer: peerJID(req.Peer), Status: req.Status}
	if err := s.validate.Struct(wc); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "set workflow status: %v", err)
	}
	if err := s.db.SetWorkflowStatus(wc.Peer, wc.Status); err != nil {
		return nil, toStatus("set workflow status", err)
	}
	s.bus.Emit(bus.KindConversationUpdated, bus.ConversationUpdated{PeerID: wc.Peer, WorkflowStatus: wc.Status})
	return &rpc.Empty{}, nil
}

func (s *ConversationService) Delete(_ context.Context, req *rpc.PeerRequest) (*rpc.Empty, error) {
	peer := peerJID(req.Peer)
	refs, err := s.mediaRefs(peer)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "delete conversation: %v", err)
	}
	if err := s.db.DeleteConversation(peer); err != nil {
		return nil, toStatus("delete conversation", err)
	}
	for _, ref := range refs {
		if err := s.media.Remove(ref); err != nil {
			s.logger.Warn("remove media failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	s.bus.Emit(bus.KindConversationUpdated, bus.ConversationUpdated{PeerID: peer, Deleted: true})
	return &rpc.Empty{}, nil
}

// mediaRefs collects the media files owned by a conversation's messages.
func (s *ConversationService) mediaRefs(peer string) ([]string, error) {
	var refs []string
	var before int64
	for {
		msgs, err := s.db.ListMessages(peer, before, maxPageSize)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.MediaRef != "" {
				refs = append(refs, m.MediaRef)
			}
		}
		if len(msgs) < maxPageSize {
			return refs, nil
		}
		before = msgs[0].Seq
	}
}

func (s *ConversationService) MarkRead(ctx context.Context, req *rpc.PeerRequest) (*rpc.MarkReadResponse, error) {
	peer := peerJID(req.Peer)
	if peer == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "mark read: peer is required")
	}
	if _, err := s.db.GetConversation(peer); err != nil {
		return nil, toStatus("mark read", err)
	}
	n, err := s.peers.MarkRead(ctx, peer)
	if err != nil {
		return nil, toStatus("mark read", err)
	}
	return &rpc.MarkReadResponse{Marked: n}, nil
}

func (s *ConversationService) RefreshAvatar(ctx context.Context, req *rpc.PeerRequest) (*rpc.Conversation, error) {
	peer := peerJID(req.Peer)
	if peer == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "refresh avatar: peer is required")
	}
	conv, err := s.peers.RefreshAvatar(ctx, peer)
	if err != nil {
		return nil, toStatus("refresh avatar", err)
	}
	c := conversationToRPC(conv)
	return &c, nil
}

func (s *ConversationService) UnreadTotal(_ context.Context, _ *rpc.Empty) (*rpc.UnreadTotal, error) {
	n, err := s.db.UnreadTotal()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "unread total: %v", err)
	}
	return &rpc.UnreadTotal{Count: n}, nil
}

func (s *ConversationService) ListMessages(_ context.Context, req *rpc.ListMessagesRequest) (*rpc.MessageList, error) {
	peer := peerJID(req.Peer)
	if _, err := s.db.GetConversation(peer); err != nil {
		return nil, toStatus("list messages", err)
	}
	limit := pageSize(req.Limit)
	msgs, err := s.db.ListMessages(peer, req.BeforeSeq, limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	resp := &rpc.MessageList{Messages: make([]rpc.Message, 0, len(msgs)), HasMore: len(msgs) == limit}
	for i := range msgs {
		resp.Messages = append(resp.Messages, messageToRPC(&msgs[i]))
	}
	return resp, nil
}
