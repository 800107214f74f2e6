package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls DocumentService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, name string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out)
}

func (c *Client) ListResults(ctx context.Context, statuses ...string) (*structpb.Struct, error) {
	vals := make([]any, len(statuses))
	for i, s := range statuses {
		vals[i] = s
	}
	in, err := structpb.NewStruct(map[string]any{"status": vals})
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "ListResults", in, out)
}

func (c *Client) GetResult(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "GetResult", wrapperspb.String(id), out)
}

func (c *Client) RetryResult(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "RetryResult", wrapperspb.String(id), out)
}

func (c *Client) ProcessPending(ctx context.Context) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "ProcessPending", &emptypb.Empty{}, out)
}

func (c *Client) IngestDirectory(ctx context.Context, root, docType string, process bool) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"root_path": root, "document_type": docType, "process": process})
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "IngestDirectory", in, out)
}

func (c *Client) StartEditing(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "StartEditing", wrapperspb.String(id), out)
}

func (c *Client) UpdateRecord(ctx context.Context, id string, record *structpb.Struct) error {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":     structpb.NewStringValue(id),
		"record": structpb.NewStructValue(record),
	}}
	return c.invoke(ctx, "UpdateRecord", in, &emptypb.Empty{})
}

func (c *Client) SaveRecord(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "SaveRecord", wrapperspb.String(id), out)
}

func (c *Client) ConfirmAndSave(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "ConfirmAndSave", wrapperspb.String(id), out)
}

func (c *Client) CancelEditing(ctx context.Context, id string) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	return out, c.invoke(ctx, "CancelEditing", wrapperspb.String(id), out)
}

func (c *Client) Export(ctx context.Context, format string) ([]byte, error) {
	out := &wrapperspb.BytesValue{}
	if err := c.invoke(ctx, "Export", wrapperspb.String(format), out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
