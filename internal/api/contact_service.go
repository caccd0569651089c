package api

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/wa"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// minNumberDigits is the shortest phone number accepted for a contact.
const minNumberDigits = 10

type newContact struct {
	Name   string `validate:"required,notblank,max=128"`
	Number string `validate:"required,numeric,min=10,max=20"`
}

// ContactService implements rpc.ContactServer.
type ContactService struct {
	db       *store.DB
	validate *validator.Validate
}

var _ rpc.ContactServer = (*ContactService)(nil)

// NewContactService creates a new contact service.
func NewContactService(db *store.DB) *ContactService {
	return &ContactService{db: db, validate: newValidator()}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func (s *ContactService) Add(_ context.Context, req *rpc.AddContactRequest) (*rpc.Contact, error) {
	nc := newContact{Name: strings.TrimSpace(req.Name), Number: digitsOnly(req.Number)}
	if err := s.validate.Struct(nc); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument,
			"add contact: name is required and number must have at least %d digits", minNumberDigits)
	}
	c := &store.Contact{
		JID:       wa.PhoneJID(nc.Number),
		Name:      nc.Name,
		Number:    nc.Number,
		AvatarURL: strings.TrimSpace(req.AvatarURL),
	}
	if err := s.db.AddContact(c); err != nil {
		return nil, toStatus("add contact", err)
	}
	resp := contactToRPC(c)
	return &resp, nil
}

func (s *ContactService) List(_ context.Context, _ *rpc.Empty) (*rpc.ContactList, error) {
	contacts, err := s.db.ListContacts()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list contacts: %v", err)
	}
	resp := &rpc.ContactList{Contacts: make([]rpc.Contact, 0, len(contacts))}
	for i := range contacts {
		resp.Contacts = append(resp.Contacts, contactToRPC(&contacts[i]))
	}
	return resp, nil
}

func (s *ContactService) Exists(_ context.Context, req *rpc.ContactExistsRequest) (*rpc.ContactExists, error) {
	jid := peerJID(req.JID)
	number := digitsOnly(req.Number)
	if jid == "" && number == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "contact exists: jid or number is required")
	}
	ok, err := s.db.ContactExists(jid, number)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "contact exists: %v", err)
	}
	return &rpc.ContactExists{Exists: ok}, nil
}

func (s *ContactService) Delete(_ context.Context, req *rpc.ContactRequest) (*rpc.Empty, error) {
	jid := peerJID(req.JID)
	if jid == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "delete contact: jid is required")
	}
	if err := s.db.DeleteContact(jid); err != nil {
		return nil, toStatus("delete contact", err)
	}
	return &rpc.Empty{}, nil
}
