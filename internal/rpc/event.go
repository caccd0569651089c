package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const EventServiceName = pkg + "EventService"

// EventServer streams bus events to consoles.
type EventServer interface {
	Watch(*WatchRequest, EventWatchServer) error
}

// EventWatchServer is the server side of a Watch stream.
type EventWatchServer interface {
	Send(*Event) error
	Context() context.Context
}

type eventWatchServer struct {
	grpc.ServerStream
}

func (s *eventWatchServer) Send(e *Event) error {
	return s.ServerStream.SendMsg(e)
}

var EventServiceDesc = grpc.ServiceDesc{
	ServiceName: EventServiceName,
	HandlerType: (*EventServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(EventServer).Watch(in, &eventWatchServer{stream})
			},
		},
	},
	Metadata: "wppdesk/v1/event",
}

func RegisterEventServer(s grpc.ServiceRegistrar, srv EventServer) {
	s.RegisterService(&EventServiceDesc, srv)
}

// EventStream is the client side of a Watch stream.
type EventStream interface {
	Recv() (*Event, error)
	grpc.ClientStream
}

type eventStream struct {
	grpc.ClientStream
}

func (s *eventStream) Recv() (*Event, error) {
	e := new(Event)
	if err := s.ClientStream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

type EventClient struct {
	cc grpc.ClientConnInterface
}

func NewEventClient(cc grpc.ClientConnInterface) *EventClient {
	return &EventClient{cc: cc}
}

// Watch opens an event stream filtered by kind prefix.
func (c *EventClient) Watch(ctx context.Context, prefix string, opts ...grpc.CallOption) (EventStream, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &EventServiceDesc.Streams[0], methodPath(EventServiceName, "Watch"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchRequest{Prefix: prefix}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &eventStream{stream}, nil
}
