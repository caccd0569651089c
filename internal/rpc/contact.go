package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ContactServiceName = pkg + "ContactService"

// ContactServer maintains the operator address book.
type ContactServer interface {
	Add(context.Context, *AddContactRequest) (*Contact, error)
	List(context.Context, *Empty) (*ContactList, error)
	Exists(context.Context, *ContactExistsRequest) (*ContactExists, error)
	Delete(context.Context, *ContactRequest) (*Empty, error)
}

var ContactServiceDesc = grpc.ServiceDesc{
	ServiceName: ContactServiceName,
	HandlerType: (*ContactServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ContactServiceName, "Add", ContactServer.Add),
		unary(ContactServiceName, "List", ContactServer.List),
		unary(ContactServiceName, "Exists", ContactServer.Exists),
		unary(ContactServiceName, "Delete", ContactServer.Delete),
	},
	Metadata: "wppdesk/v1/contact",
}

func RegisterContactServer(s grpc.ServiceRegistrar, srv ContactServer) {
	s.RegisterService(&ContactServiceDesc, srv)
}

type ContactClient struct {
	cc grpc.ClientConnInterface
}

func NewContactClient(cc grpc.ClientConnInterface) *ContactClient {
	return &ContactClient{cc: cc}
}

func (c *ContactClient) Add(ctx context.Context, req *AddContactRequest, opts ...grpc.CallOption) (*Contact, error) {
	return invoke[Contact](ctx, c.cc, methodPath(ContactServiceName, "Add"), req, opts...)
}

func (c *ContactClient) List(ctx context.Context, opts ...grpc.CallOption) (*ContactList, error) {
	return invoke[ContactList](ctx, c.cc, methodPath(ContactServiceName, "List"), &Empty{}, opts...)
}

func (c *ContactClient) Exists(ctx context.Context, req *ContactExistsRequest, opts ...grpc.CallOption) (bool, error) {
	resp, err := invoke[ContactExists](ctx, c.cc, methodPath(ContactServiceName, "Exists"), req, opts...)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *ContactClient) Delete(ctx context.Context, jid string, opts ...grpc.CallOption) error {
	_, err := invoke[Empty](ctx, c.cc, methodPath(ContactServiceName, "Delete"), &ContactRequest{JID: jid}, opts...)
	return err
}
