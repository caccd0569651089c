package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const MessageServiceName = pkg + "MessageService"

// MessageServer sends operator messages.
type MessageServer interface {
	SendText(context.Context, *SendTextRequest) (*SendResponse, error)
	SendMedia(context.Context, *SendMediaRequest) (*SendResponse, error)
	Retry(context.Context, *RetryRequest) (*SendResponse, error)
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "SendText", MessageServer.SendText),
		unary(MessageServiceName, "SendMedia", MessageServer.SendMedia),
		unary(MessageServiceName, "Retry", MessageServer.Retry),
	},
	Metadata: "wppdesk/v1/message",
}

func RegisterMessageServer(s grpc.ServiceRegistrar, srv MessageServer) {
	s.RegisterService(&MessageServiceDesc, srv)
}

type MessageClient struct {
	cc grpc.ClientConnInterface
}

func NewMessageClient(cc grpc.ClientConnInterface) *MessageClient {
	return &MessageClient{cc: cc}
}

func (c *MessageClient) SendText(ctx context.Context, peer, text string, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, methodPath(MessageServiceName, "SendText"), &SendTextRequest{Peer: peer, Text: text}, opts...)
}

func (c *MessageClient) SendMedia(ctx context.Context, req *SendMediaRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, methodPath(MessageServiceName, "SendMedia"), req, opts...)
}

func (c *MessageClient) Retry(ctx context.Context, peer, id string, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, methodPath(MessageServiceName, "Retry"), &RetryRequest{Peer: peer, ID: id}, opts...)
}
