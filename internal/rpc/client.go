package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// DialOptions contains options for connecting to a Records server.
type DialOptions struct {
	// Keepalive parameters
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	// Additional dial options
	DialOptions []grpc.DialOption
}

// DefaultDialOptions returns default dial options.
func DefaultDialOptions() DialOptions {
	return DialOptions{
		KeepaliveTime:    10 * time.Second,
		KeepaliveTimeout: 3 * time.Second,
	}
}

// Dial creates a client connection to addr. The connection is established
// lazily on the first call.
func Dial(addr string, opts DialOptions) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                opts.KeepaliveTime,
			Timeout:             opts.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	dialOpts = append(dialOpts, opts.DialOptions...)
	return grpc.NewClient(addr, dialOpts...)
}

// Client calls a Records server with the adapter.Service calling
// convention. Errors come back as *adapter.Error with the server's kind.
// Patch and Remove decode a single record, so a legacy server's null-id bulk
// form is reached with PatchMany and RemoveMany instead.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Find lists the records matching p.
func (c *Client) Find(ctx context.Context, p *query.Params, opts adapter.FindOptions) (*adapter.FindResult, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	if opts.Paginate != nil {
		req.Fields[fieldPaginate] = structpb.NewBoolValue(*opts.Paginate)
	}
	res := &adapter.FindResult{}
	if err := c.call(ctx, "Find", req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get returns the record with id, or nil.
func (c *Client) Get(ctx context.Context, id record.Value, p *query.Params) (*record.Record, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	if err := withID(req, id); err != nil {
		return nil, err
	}
	return c.one(ctx, "Get", req)
}

// Create stores one record.
func (c *Client) Create(ctx context.Context, data *record.Record) (*record.Record, error) {
	req, err := c.request(nil)
	if err != nil {
		return nil, err
	}
	if err := withData(req, data); err != nil {
		return nil, err
	}
	return c.one(ctx, "Create", req)
}

// CreateMany stores records in order.
func (c *Client) CreateMany(ctx context.Context, data []*record.Record) ([]*record.Record, error) {
	req, err := c.request(nil)
	if err != nil {
		return nil, err
	}
	list := make([]*structpb.Value, len(data))
	for i, r := range data {
		if list[i], err = recordValue(r); err != nil {
			return nil, err
		}
	}
	req.Fields[fieldData] = structpb.NewListValue(&structpb.ListValue{Values: list})
	return c.many(ctx, "Create", req)
}

// Patch updates the record with id.
func (c *Client) Patch(ctx context.Context, id record.Value, data *record.Record, p *query.Params) (*record.Record, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	if err := withID(req, id); err != nil {
		return nil, err
	}
	if err := withData(req, data); err != nil {
		return nil, err
	}
	return c.one(ctx, "Patch", req)
}

// PatchMany updates every record matching p.
func (c *Client) PatchMany(ctx context.Context, data *record.Record, p *query.Params, allowAll bool) ([]*record.Record, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	if err := withData(req, data); err != nil {
		return nil, err
	}
	req.Fields[fieldAllowAll] = structpb.NewBoolValue(allowAll)
	return c.many(ctx, "PatchMany", req)
}

// Remove deletes the record with id.
func (c *Client) Remove(ctx context.Context, id record.Value, p *query.Params) (*record.Record, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	if err := withID(req, id); err != nil {
		return nil, err
	}
	return c.one(ctx, "Remove", req)
}

// RemoveMany deletes every record matching p.
func (c *Client) RemoveMany(ctx context.Context, p *query.Params, allowAll bool) ([]*record.Record, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	req.Fields[fieldAllowAll] = structpb.NewBoolValue(allowAll)
	return c.many(ctx, "RemoveMany", req)
}

// RemoveAll deletes every record.
func (c *Client) RemoveAll(ctx context.Context) ([]*record.Record, error) {
	req, err := c.request(nil)
	if err != nil {
		return nil, err
	}
	return c.many(ctx, "RemoveAll", req)
}

func (c *Client) request(p *query.Params) (*structpb.Struct, error) {
	q, err := queryValue(p)
	if err != nil {
		return nil, adapter.NewBadRequest("%v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{fieldQuery: q}}, nil
}

func withID(req *structpb.Struct, id record.Value) error {
	v, err := valueOf(id)
	if err != nil {
		return adapter.NewBadRequest("id: %v", err)
	}
	req.Fields[fieldID] = v
	return nil
}

func withData(req *structpb.Struct, data *record.Record) error {
	v, err := recordValue(data)
	if err != nil {
		return adapter.NewBadRequest("%v", err)
	}
	req.Fields[fieldData] = v
	return nil
}

func (c *Client) one(ctx context.Context, method string, req *structpb.Struct) (*record.Record, error) {
	var r *record.Record
	if err := c.call(ctx, method, req, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) many(ctx context.Context, method string, req *structpb.Struct) ([]*record.Record, error) {
	rs := []*record.Record{}
	if err := c.call(ctx, method, req, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (c *Client) call(ctx context.Context, method string, req *structpb.Struct, out any) error {
	resp := new(structpb.Value)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return fromStatus(err)
	}
	if err := decode(resp, out); err != nil {
		return adapter.NewGeneralError("decoding %s response: %v", method, err)
	}
	return nil
}
