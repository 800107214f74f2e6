package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return st, nil
}

func encode(v any) (*structpb.Struct, error) {
	st, err := toStruct(v)
	if err != nil {
		return nil, common.InternalErrorf("encode: %v", err)
	}
	return st, nil
}

func recordFromStruct(st *structpb.Struct) (*entity.DocumentRecord, error) {
	b, err := protojson.Marshal(st)
	if err != nil {
		return nil, err
	}
	var rec entity.DocumentRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// orderLike restores the key order of ref on rec. Struct maps carry no order, so
// keys known to ref come first in ref's order and new keys follow.
func orderLike(rec, ref *entity.DocumentRecord) {
	if rec == nil || ref == nil {
		return
	}
	rec.Fields = reorder(rec.Fields, ref.Fields)
	for i := range rec.Items {
		if i < len(ref.Items) {
			rec.Items[i].Fields = reorder(rec.Items[i].Fields, ref.Items[i].Fields)
		}
	}
}

func reorder(f, ref entity.Fields) entity.Fields {
	var out entity.Fields
	for _, k := range ref.Keys() {
		if v, ok := f.Get(k); ok {
			out.Set(k, v)
		}
	}
	for _, k := range f.Keys() {
		if !out.Has(k) {
			v, _ := f.Get(k)
			out.Set(k, v)
		}
	}
	return out
}
