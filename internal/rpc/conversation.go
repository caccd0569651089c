package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ConversationServiceName = pkg + "ConversationService"

// ConversationServer queries and administers conversations.
type ConversationServer interface {
	List(context.Context, *ListConversationsRequest) (*ConversationList, error)
	Get(context.Context, *PeerRequest) (*ConversationDetail, error)
	SetWorkflowStatus(context.Context, *WorkflowRequest) (*Empty, error)
	Delete(context.Context, *PeerRequest) (*Empty, error)
	MarkRead(context.Context, *PeerRequest) (*MarkReadResponse, error)
	RefreshAvatar(context.Context, *PeerRequest) (*Conversation, error)
	UnreadTotal(context.Context, *Empty) (*UnreadTotal, error)
	ListMessages(context.Context, *ListMessagesRequest) (*MessageList, error)
}

var ConversationServiceDesc = grpc.ServiceDesc{
	ServiceName: ConversationServiceName,
	HandlerType: (*ConversationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ConversationServiceName, "List", ConversationServer.List),
		unary(ConversationServiceName, "Get", ConversationServer.Get),
		unary(ConversationServiceName, "SetWorkflowStatus", ConversationServer.SetWorkflowStatus),
		unary(ConversationServiceName, "Delete", ConversationServer.Delete),
		unary(ConversationServiceName, "MarkRead", ConversationServer.MarkRead),
		unary(ConversationServiceName, "RefreshAvatar", ConversationServer.RefreshAvatar),
		unary(ConversationServiceName, "UnreadTotal", ConversationServer.UnreadTotal),
		unary(ConversationServiceName, "ListMessages", ConversationServer.ListMessages),
	},
	Metadata: "wppdesk/v1/conversation",
}

func RegisterConversationServer(s grpc.ServiceRegistrar, srv ConversationServer) {
	s.RegisterService(&ConversationServiceDesc, srv)
}

type ConversationClient struct {
	cc grpc.ClientConnInterface
}

func NewConversationClient(cc grpc.ClientConnInterface) *ConversationClient {
	return &ConversationClient{cc: cc}
}

func (c *ConversationClient) List(ctx context.Context, limit, offset int, opts ...grpc.CallOption) (*ConversationList, error) {
	return invoke[ConversationList](ctx, c.cc, methodPath(ConversationServiceName, "List"), &ListConversationsRequest{Limit: limit, Offset: offset}, opts...)
}

func (c *ConversationClient) Get(ctx context.Context, peer string, opts ...grpc.CallOption) (*ConversationDetail, error) {
	return invoke[ConversationDetail](ctx, c.cc, methodPath(ConversationServiceName, "Get"), &PeerRequest{Peer: peer}, opts...)
}

func (c *ConversationClient) SetWorkflowStatus(ctx context.Context, peer, status string, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(ConversationServiceName, "SetWorkflowStatus"), &WorkflowRequest{Peer: peer, Status: status}, opts...)
	return err
}

func (c *ConversationClient) Delete(ctx context.Context, peer string, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(ConversationServiceName, "Delete"), &PeerRequest{Peer: peer}, opts...)
	return err
}

func (c *ConversationClient) MarkRead(ctx context.Context, peer string, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, methodPath(ConversationServiceName, "MarkRead"), &PeerRequest{Peer: peer}, opts...)
}

func (c *ConversationClient) RefreshAvatar(ctx context.Context, peer string, opts ...grpc.CallOption) (*Conversation, error) {
	return invoke[Conversation](ctx, c.cc, methodPath(ConversationServiceName, "RefreshAvatar"), &PeerRequest{Peer: peer}, opts...)
}

func (c *ConversationClient) UnreadTotal(ctx context.Context, opts ...grpc.CallOption) (*UnreadTotal, error) {
	return invoke[UnreadTotal](ctx, c.cc, methodPath(ConversationServiceName, "UnreadTotal"), &Empty{}, opts...)
}

func (c *ConversationClient) ListMessages(ctx context.Context, req *ListMessagesRequest, opts ...grpc.CallOption) (*MessageList, error) {
	return invoke[MessageList](ctx, c.cc, methodPath(ConversationServiceName, "ListMessages"), req, opts...)
}
