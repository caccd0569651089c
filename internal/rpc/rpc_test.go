package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeSession struct {
	resetWith *ResetRequest
}

func (f *fakeSession) GetStatus(context.Context, *Empty) (*SessionStatus, error) {
	return &SessionStatus{Session: "main", Status: "connected", MessageCount: 3}, nil
}

func (f *fakeSession) GetPairing(context.Context, *Empty) (*Pairing, error) {
	return nil, status.Error(codes.NotFound, "no pairing challenge")
}

func (f *fakeSession) Reset(_ context.Context, req *ResetRequest) (*Empty, error) {
	f.resetWith = req
	return &Empty{}, nil
}

func (f *fakeSession) Disconnect(context.Context, *Empty) (*Empty, error) { return &Empty{}, nil }
func (f *fakeSession) Connect(context.Context, *Empty) (*Empty, error)    { return &Empty{}, nil }
func (f *fakeSession) Health(context.Context, *Empty) (*Health, error)    { return &Health{OK: true}, nil }

type fakeMessages struct{}

func (fakeMessages) SendText(_ context.Context, req *SendTextRequest) (*SendResponse, error) {
	return &SendResponse{Message: Message{Peer: req.Peer, ID: "SRV-1", Text: req.Text, Status: "sent"}}, nil
}

func (fakeMessages) SendMedia(_ context.Context, req *SendMediaRequest) (*SendResponse, error) {
	return &SendResponse{Message: Message{Peer: req.Peer, Kind: req.Kind, Ref: string(req.Data)}}, nil
}

func (fakeMessages) Retry(context.Context, *RetryRequest) (*SendResponse, error) {
	return nil, status.Error(codes.FailedPrecondition, "not connected")
}

type fakeEvents struct{}

func (fakeEvents) Watch(req *WatchRequest, stream EventWatchServer) error {
	for i, kind := range []string{"message.new", "message.status"} {
		payload, _ := json.Marshal(map[string]int{"n": i})
		if err := stream.Send(&Event{ID: kind, Kind: req.Prefix + kind, Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}

func startServer(t *testing.T, interceptor grpc.UnaryServerInterceptor) (*Client, *fakeSession) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	var opts []grpc.ServerOption
	if interceptor != nil {
		opts = append(opts, grpc.UnaryInterceptor(interceptor))
	}
	srv := grpc.NewServer(opts...)
	sess := &fakeSession{}
	RegisterSessionServer(srv, sess)
	RegisterMessageServer(srv, fakeMessages{})
	RegisterEventServer(srv, fakeEvents{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), sess
}

func TestUnaryRoundTrip(t *testing.T) {
	c, sess := startServer(t, nil)
	ctx := context.Background()

	st, err := c.Session.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connected", st.Status)
	assert.EqualValues(t, 3, st.MessageCount)

	require.NoError(t, c.Session.Reset(ctx, true))
	require.NotNil(t, sess.resetWith)
	assert.True(t, sess.resetWith.Reconnect)

	resp, err := c.Message.SendText(ctx, "p@s.whatsapp.net", "olá")
	require.NoError(t, err)
	assert.Equal(t, "SRV-1", resp.Message.ID)
	assert.Equal(t, "olá", resp.Message.Text)
}

func TestBinaryPayloadSurvivesJSON(t *testing.T) {
	c, _ := startServer(t, nil)
	resp, err := c.Message.SendMedia(context.Background(), &SendMediaRequest{Peer: "p", Kind: "sticker", Data: []byte{0, 1, 2, 'R'}})
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0, 1, 2, 'R'}), resp.Message.Ref)
}

func TestStatusCodesPropagate(t *testing.T) {
	c, _ := startServer(t, nil)

	_, err := c.Session.GetPairing(context.Background())
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Message.Retry(context.Background(), "p", "temp-1")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestUnimplementedService(t *testing.T) {
	c, _ := startServer(t, nil)
	_, err := c.Contact.List(context.Background())
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestInterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	c, _ := startServer(t, func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	})
	_, err := c.Session.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/wppdesk.v1.SessionService/Health"}, seen)
}

func TestWatchStream(t *testing.T) {
	c, _ := startServer(t, nil)
	stream, err := c.Event.Watch(context.Background(), "x.")
	require.NoError(t, err)

	var kinds []string
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, evt.Kind)
	}
	assert.Equal(t, []string{"x.message.new", "x.message.status"}, kinds)
}

func TestCodecName(t *testing.T) {
	assert.Equal(t, "json", jsonCodec{}.Name())
	data, err := jsonCodec{}.Marshal(&PeerRequest{Peer: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"peer":"a"}`, string(data))
}
