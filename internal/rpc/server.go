// Package rpc exposes an adapter.Service as the gRPC service
// wings.v1.Records and provides a client for it.
//
// The service is declared by hand (see ServiceDesc) with
// google.protobuf.Struct requests and google.protobuf.Value responses, so no
// generated code is needed. A request may carry:
//
//	query     the query wire shape; $sort as a list keeps key order
//	id        the record id
//	data      an object, or a list of objects for Create
//	allowAll  permit PatchMany and RemoveMany without a query
//	paginate  return the paginated envelope from Find
//
// Error kinds travel as gRPC status codes; see CodeOf.
package rpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/compat"
	"github.com/redbco/wings/pkg/logger"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Legacy serves the compat calling convention: Find paginates by
	// default, missing records raise NotFound and a null id on Patch or
	// Remove applies to every record the query matches.
	Legacy bool
	Logger *logger.Logger
}

// Server implements RecordsServer over an adapter.Service.
type Server struct {
	svc    *adapter.Service
	legacy *compat.Service
	log    *logger.Logger
}

var _ RecordsServer = (*Server)(nil)

// NewServer creates a server for svc.
func NewServer(svc *adapter.Service, opts ServerOptions) *Server {
	s := &Server{svc: svc, log: opts.Logger}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if opts.Legacy {
		s.legacy = compat.New(svc)
	}
	return s
}

// Find returns a list, or the paginated envelope when requested.
func (s *Server) Find(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return s.fail("Find", err)
	}
	var res *adapter.FindResult
	if s.legacy != nil {
		res, err = s.legacy.Find(ctx, req.params, compat.FindOptions{Paginate: req.paginate})
	} else {
		res, err = s.svc.Find(ctx, req.params, adapter.FindOptions{Paginate: req.paginate})
	}
	return s.reply("Find", res, err)
}

// Get returns the record or null.
func (s *Server) Get(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return s.fail("Get", err)
	}
	if s.legacy != nil {
		r, err := s.legacy.Get(ctx, req.id, req.params)
		return s.reply("Get", r, err)
	}
	r, err := s.svc.Get(ctx, req.id, req.params)
	return s.reply("Get", r, err)
}

// Create stores data. A list creates many records and returns a list.
func (s *Server) Create(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return s.fail("Create", err)
	}
	if len(req.data) == 0 && !req.many {
		return s.fail("Create", adapter.NewBadRequest("data is required"))
	}
	if req.many {
		rs, err := s.svc.CreateMany(ctx, req.data)
		return s.reply("Create", rs, err)
	}
	r, err := s.svc.Create(ctx, req.data[0])
	return s.reply("Create", r, err)
}

// Patch updates one record.
func (s *Server) Patch(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := s.single("Patch", in)
	if err != nil {
		return s.fail("Patch", err)
	}
	if s.legacy != nil {
		res, err := s.legacy.Patch(ctx, req.id, req.data[0], req.params)
		return s.reply("Patch", res, err)
	}
	r, err := s.svc.Patch(ctx, req.id, req.data[0], req.params)
	return s.reply("Patch", r, err)
}

// PatchMany updates every record the query matches.
func (s *Server) PatchMany(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := s.single("PatchMany", in)
	if err != nil {
		return s.fail("PatchMany", err)
	}
	rs, err := s.svc.PatchMany(ctx, req.data[0], req.params, req.allowAll)
	return s.reply("PatchMany", rs, err)
}

// Remove deletes one record.
func (s *Server) Remove(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return s.fail("Remove", err)
	}
	if s.legacy != nil {
		res, err := s.legacy.Remove(ctx, req.id, req.params)
		return s.reply("Remove", res, err)
	}
	r, err := s.svc.Remove(ctx, req.id, req.params)
	return s.reply("Remove", r, err)
}

// RemoveMany deletes every record the query matches.
func (s *Server) RemoveMany(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return s.fail("RemoveMany", err)
	}
	rs, err := s.svc.RemoveMany(ctx, req.params, req.allowAll)
	return s.reply("RemoveMany", rs, err)
}

// RemoveAll deletes every record.
func (s *Server) RemoveAll(ctx context.Context, _ *structpb.Struct) (*structpb.Value, error) {
	rs, err := s.svc.RemoveAll(ctx)
	return s.reply("RemoveAll", rs, err)
}

func (s *Server) single(method string, in *structpb.Struct) (*request, error) {
	req, err := decodeRequest(in)
	if err != nil {
		return nil, err
	}
	if req.many || len(req.data) != 1 {
		return nil, adapter.NewBadRequest("%s requires data to be an object", method)
	}
	return req, nil
}

func (s *Server) reply(method string, v any, err error) (*structpb.Value, error) {
	if err != nil {
		return s.fail(method, err)
	}
	out, err := encode(v)
	if err != nil {
		return s.fail(method, err)
	}
	return out, nil
}

func (s *Server) fail(method string, err error) (*structpb.Value, error) {
	err = adapter.Classify(s.svc.Descriptor(), err)
	s.log.WithFields(map[string]string{
		"method": method,
		"kind":   string(adapter.KindOf(err)),
	}).Warn("Request failed: %v", err)
	return nil, toStatus(err)
}
