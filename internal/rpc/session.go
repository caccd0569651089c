package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const SessionServiceName = pkg + "SessionService"

// SessionServer controls the messaging session.
type SessionServer interface {
	GetStatus(context.Context, *Empty) (*SessionStatus, error)
	GetPairing(context.Context, *Empty) (*Pairing, error)
	Reset(context.Context, *ResetRequest) (*Empty, error)
	Disconnect(context.Context, *Empty) (*Empty, error)
	Connect(context.Context, *Empty) (*Empty, error)
	Health(context.Context, *Empty) (*Health, error)
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetStatus", SessionServer.GetStatus),
		unary(SessionServiceName, "GetPairing", SessionServer.GetPairing),
		unary(SessionServiceName, "Reset", SessionServer.Reset),
		unary(SessionServiceName, "Disconnect", SessionServer.Disconnect),
		unary(SessionServiceName, "Connect", SessionServer.Connect),
		unary(SessionServiceName, "Health", SessionServer.Health),
	},
	Metadata: "wppdesk/v1/session",
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// SessionClient is the client side of SessionService.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*SessionStatus, error) {
	return invoke[SessionStatus](ctx, c.cc, methodPath(SessionServiceName, "GetStatus"), &Empty{}, opts...)
}

func (c *SessionClient) GetPairing(ctx context.Context, opts ...grpc.CallOption) (*Pairing, error) {
	return invoke[Pairing](ctx, c.cc, methodPath(SessionServiceName, "GetPairing"), &Empty{}, opts...)
}

func (c *SessionClient) Reset(ctx context.Context, reconnect bool, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(SessionServiceName, "Reset"), &ResetRequest{Reconnect: reconnect}, opts...)
	return err
}

func (c *SessionClient) Disconnect(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(SessionServiceName, "Disconnect"), &Empty{}, opts...)
	return err
}

func (c *SessionClient) Connect(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(SessionServiceName, "Connect"), &Empty{}, opts...)
	return err
}

func (c *SessionClient) Health(ctx context.Context, opts ...grpc.CallOption) (*Health, error) {
	return invoke[Health](ctx, c.cc, methodPath(SessionServiceName, "Health"), &Empty{}, opts...)
}
