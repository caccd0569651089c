package rpc

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn         *grpc.ClientConn
	Session      *SessionClient
	Conversation *ConversationClient
	Message      *MessageClient
	Contact      *ContactClient
	Sticker      *StickerClient
	Event        *EventClient
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName), grpc.MaxCallRecvMsgSize(64<<20), grpc.MaxCallSendMsgSize(64<<20)),
	}, opts...)
	conn, err := grpc.NewClient("unix://"+socketPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient builds typed service clients over an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{
		conn:         conn,
		Session:      NewSessionClient(conn),
		Conversation: NewConversationClient(conn),
		Message:      NewMessageClient(conn),
		Contact:      NewContactClient(conn),
		Sticker:      NewStickerClient(conn),
		Event:        NewEventClient(conn),
	}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
