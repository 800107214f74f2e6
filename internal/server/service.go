package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/async"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
	"github.com/joseph-ayodele/docs-extractor/internal/ingest"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/review"
)

const ServiceName = "docextract.v1.DocumentService"

// Enqueuer hands a pending result to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// DocumentServer is the gRPC surface over results, review sessions and export.
type DocumentServer interface {
	ListResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResult(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RetryResult(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ProcessPending(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	IngestFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartEditing(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	UpdateRecord(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	SaveRecord(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ConfirmAndSave(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CancelEditing(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Export(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

type DocumentService struct {
	store    *results.Store
	review   *review.Service
	export   *export.Service
	ingestor *ingest.Ingestor
	queue    Enqueuer
	logger   *slog.Logger
}

var _ DocumentServer = (*DocumentService)(nil)

func NewDocumentService(store *results.Store, rev *review.Service, exp *export.Service, ing *ingest.Ingestor, queue Enqueuer, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{store: store, review: rev, export: exp, ingestor: ing, queue: queue, logger: logger}
}

// Register attaches the service to a gRPC server.
func Register(s *grpc.Server, svc DocumentServer) {
	s.RegisterService(&serviceDesc, svc)
}

func (s *DocumentService) ListResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var statuses []constants.ProcessStatus
	if v, ok := req.GetFields()["status"]; ok {
		for _, raw := range v.GetListValue().GetValues() {
			st := constants.ProcessStatus(strings.ToLower(raw.GetStringValue()))
			if !st.Valid() {
				return nil, common.InvalidArgumentErrorf("unknown status %q", raw.GetStringValue())
			}
			statuses = append(statuses, st)
		}
	}
	rs := s.store.List(statuses...)
	s.logger.Info("server.list_results", "statuses", statuses, "count", len(rs))
	out, err := toStruct(map[string]any{"results": rs})
	if err != nil {
		return nil, common.InternalErrorf("encode results: %v", err)
	}
	return out, nil
}

func (s *DocumentService) GetResult(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	r, err := s.store.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

// RetryResult moves an error result back to pending and queues it.
func (s *DocumentService) RetryResult(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	r, err := s.store.Retry(ctx, id)
	if err != nil {
		s.logger.Warn("server.retry.failed", "id", id, "error", err)
		return nil, toStatus(err)
	}
	if err := s.enqueue(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

// ProcessPending queues every pending result.
func (s *DocumentService) ProcessPending(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	pending := s.store.List(constants.StatusPending)
	queued := 0
	for _, r := range pending {
		if err := s.enqueue(ctx, r.ID); err != nil {
			s.logger.Warn("server.process_pending.enqueue_failed", "id", r.ID, "error", err)
			return nil, toStatus(err)
		}
		queued++
	}
	s.logger.Info("server.process_pending", "queued", queued)
	return structpb.NewStruct(map[string]any{"queued": queued})
}

func (s *DocumentService) StartEditing(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.review.StartEditing(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rec)
}

// UpdateRecord expects {"id": "...", "record": {...}}.
func (s *DocumentService) UpdateRecord(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	if id == "" {
		return nil, common.InvalidArgumentError("id is required")
	}
	raw := req.GetFields()["record"].GetStructValue()
	if raw == nil {
		return nil, common.InvalidArgumentError("record is required")
	}
	working, err := s.review.Working(id)
	if err != nil {
		return nil, toStatus(err)
	}
	rec, err := recordFromStruct(raw)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("record: %v", err)
	}
	orderLike(rec, working)
	if err := s.review.Update(id, rec); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *DocumentService) SaveRecord(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	r, err := s.review.Save(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

func (s *DocumentService) ConfirmAndSave(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	r, err := s.review.ConfirmAndSave(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(r)
}

// CancelEditing returns the record as it was before editing started.
func (s *DocumentService) CancelEditing(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.review.Cancel(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rec)
}

func (s *DocumentService) enqueue(ctx context.Context, id string) error {
	if s.queue == nil {
		return common.NewAppError("NO_WORKER", "processing queue is not configured", common.ErrConflict)
	}
	return s.queue.Enqueue(ctx, async.Job{ResultID: id})
}

func requireID(req *wrapperspb.StringValue) (string, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return "", common.InvalidArgumentError("id is required")
	}
	return id, nil
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, results.ErrNotFound):
		return common.NotFoundError(err.Error())
	case errors.Is(err, results.ErrInvalidTransition),
		errors.Is(err, review.ErrNotEditing),
		errors.Is(err, review.ErrAlreadyEditing),
		errors.Is(err, review.ErrNotEditable),
		errors.Is(err, export.ErrNothingToExport),
		errors.Is(err, async.ErrQueueClosed):
		return common.FailedPreconditionError(err.Error())
	case errors.Is(err, review.ErrTypeMismatch), errors.Is(err, ingest.ErrUnsupportedExtension):
		return common.InvalidArgumentError(err.Error())
	}
	return common.ToStatus(err)
}

type handlerFunc func(srv DocumentServer, ctx context.Context, req proto.Message) (proto.Message, error)

func method(name string, newReq func() proto.Message, call handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			ds := srv.(DocumentServer)
			if interceptor == nil {
				return call(ds, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(ds, ctx, req.(proto.Message))
			})
		},
	}
}

func newStruct() proto.Message { return &structpb.Struct{} }
func newString() proto.Message { return &wrapperspb.StringValue{} }
func newEmpty() proto.Message  { return &emptypb.Empty{} }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServer)(nil),
	Methods: []grpc.MethodDesc{
		method("ListResults", newStruct, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.ListResults(ctx, in.(*structpb.Struct))
		}),
		method("GetResult", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.GetResult(ctx, in.(*wrapperspb.StringValue))
		}),
		method("RetryResult", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.RetryResult(ctx, in.(*wrapperspb.StringValue))
		}),
		method("ProcessPending", newEmpty, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.ProcessPending(ctx, in.(*emptypb.Empty))
		}),
		method("IngestFile", newStruct, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.IngestFile(ctx, in.(*structpb.Struct))
		}),
		method("IngestDirectory", newStruct, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.IngestDirectory(ctx, in.(*structpb.Struct))
		}),
		method("StartEditing", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.StartEditing(ctx, in.(*wrapperspb.StringValue))
		}),
		method("UpdateRecord", newStruct, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.UpdateRecord(ctx, in.(*structpb.Struct))
		}),
		method("SaveRecord", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.SaveRecord(ctx, in.(*wrapperspb.StringValue))
		}),
		method("ConfirmAndSave", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.ConfirmAndSave(ctx, in.(*wrapperspb.StringValue))
		}),
		method("CancelEditing", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.CancelEditing(ctx, in.(*wrapperspb.StringValue))
		}),
		method("Export", newString, func(s DocumentServer, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.Export(ctx, in.(*wrapperspb.StringValue))
		}),
	},
	Streams: []grpc.StreamDesc{},
}
