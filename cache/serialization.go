package cache

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encoding/decoding options configured for security and determinism.
var (
	// encMode encodes envelopes and filter objects.
	// - Sort: SortCanonical gives the same bytes for the same input, which key derivation relies on
	// - Time: TimeRFC3339Nano keeps envelope timestamps readable across languages
	encMode cbor.EncMode

	// decMode decodes envelopes read back from the store.
	// - MaxArrayElements / MaxMapPairs / MaxNestedLevels bound hostile or corrupt payloads
	// - DefaultMapType decodes untyped maps with string keys so JSON-style payloads round-trip
	// - IntDec decodes untyped integers as int64, matching what callers stored
	decMode cbor.DecMode
)

//nolint:gochecknoinits // Required for CBOR mode configuration at package load time
func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 100000,
		MaxMapPairs:      100000,
		MaxNestedLevels:  32,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		IntDec:           cbor.IntDecConvertSignedOrBigInt,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

// Entry is the envelope stored in place of the caller's value.
// Data is fully replaced on overwrite; Kind records the Go type written so that a
// read into a different type is reported instead of silently mis-decoded.
type Entry[T any] struct {
	Data      T             `cbor:"1,keyasint"`
	Timestamp time.Time     `cbor:"2,keyasint"`
	TTL       time.Duration `cbor:"3,keyasint"`
	Tags      []string      `cbor:"4,keyasint,omitempty"`
	Kind      string        `cbor:"5,keyasint,omitempty"`
}

// Marshal serializes a value to canonical CBOR bytes.
func Marshal[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes CBOR bytes into a value of type T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return v, nil
}

// encodeEntry wraps value in an envelope and serializes it.
func encodeEntry(value any, ttl time.Duration, tags []string, now time.Time) ([]byte, error) {
	return Marshal(Entry[any]{
		Data:      value,
		Timestamp: now,
		TTL:       ttl,
		Tags:      tags,
		Kind:      kindOf(reflect.TypeOf(value)),
	})
}

// decodeEntry parses a stored envelope and decodes its data into dest, which must be a
// non-nil pointer. A parse failure wraps ErrCorruptEntry; a Kind conflict wraps ErrTypeMismatch.
func decodeEntry(raw []byte, dest any) (Entry[cbor.RawMessage], error) {
	entry, err := Unmarshal[Entry[cbor.RawMessage]](raw)
	if err != nil {
		return entry, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return entry, fmt.Errorf("%w: destination must be a non-nil pointer, got %T", ErrTypeMismatch, dest)
	}

	want := rv.Type().Elem()
	if want.Kind() != reflect.Interface && entry.Kind != "" && entry.Kind != kindOf(want) {
		return entry, fmt.Errorf("%w: stored %s, requested %s", ErrTypeMismatch, entry.Kind, kindOf(want))
	}

	if len(entry.Data) == 0 {
		return entry, nil
	}
	if err := decMode.Unmarshal(entry.Data, dest); err != nil {
		return entry, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return entry, nil
}

// kindOf names a type with pointer indirections removed, so *Job and Job share a kind.
func kindOf(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

// rawString renders a value's plain string form for Raw writes.
func rawString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// assignRaw stores a Raw read into dest, which must be *string or *[]byte.
func assignRaw(raw string, dest any) error {
	switch d := dest.(type) {
	case *string:
		*d = raw
	case *[]byte:
		*d = []byte(raw)
	case *any:
		*d = raw
	default:
		return fmt.Errorf("%w: raw entries decode into *string or *[]byte, got %T", ErrTypeMismatch, dest)
	}
	return nil
}
