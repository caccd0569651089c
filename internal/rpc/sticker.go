package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const StickerServiceName = pkg + "StickerService"

// StickerServer manages saved stickers.
type StickerServer interface {
	Save(context.Context, *SaveStickerRequest) (*Sticker, error)
	List(context.Context, *Empty) (*StickerList, error)
}

var StickerServiceDesc = grpc.ServiceDesc{
	ServiceName: StickerServiceName,
	HandlerType: (*StickerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(StickerServiceName, "Save", StickerServer.Save),
		unary(StickerServiceName, "List", StickerServer.List),
	},
	Metadata: "wppdesk/v1/sticker",
}

func RegisterStickerServer(s grpc.ServiceRegistrar, srv StickerServer) {
	s.RegisterService(&StickerServiceDesc, srv)
}

type StickerClient struct {
	cc grpc.ClientConnInterface
}

func NewStickerClient(cc grpc.ClientConnInterface) *StickerClient {
	return &StickerClient{cc: cc}
}

func (c *StickerClient) Save(ctx context.Context, req *SaveStickerRequest, opts ...grpc.CallOption) (*Sticker, error) {
	return invoke[Sticker](ctx, c.cc, methodPath(StickerServiceName, "Save"), req, opts...)
}

func (c *StickerClient) List(ctx context.Context, opts ...grpc.CallOption) (*StickerList, error) {
	return invoke[StickerList](ctx, c.cc, methodPath(StickerServiceName, "List"), &Empty{}, opts...)
}
