package checkpoint

import "encoding/json"

// Codec converts ledger values to and from their stored form.
type Codec[V any] interface {
	Marshal(V) ([]byte, error)
	Unmarshal([]byte) (V, error)
}

// BytesCodec stores []byte values as they are.
type BytesCodec struct{}

func (BytesCodec) Marshal(v []byte) ([]byte, error) {
	return v, nil
}

func (BytesCodec) Unmarshal(bz []byte) ([]byte, error) {
	return append([]byte(nil), bz...), nil
}

// JSONCodec stores values with encoding/json.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Marshal(v V) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[V]) Unmarshal(bz []byte) (V, error) {
	var v V
	err := json.Unmarshal(bz, &v)
	return v, err
}

var (
	_ Codec[[]byte] = BytesCodec{}
	_ Codec[int]    = JSONCodec[int]{}
)
