// Package codec implements the Binary + Textual Encoders (C5): a
// length-delimited binary envelope around an encoded record list, and a
// deterministic nested text literal suitable for embedding in a scripting
// language source file (spec.md §4.5).
package codec

import (
	"context"
	"fmt"
	"sync"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/reporter"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"xlstool/internal/record"
)

// Magic is the envelope's fixed identifier (spec.md §4.5): 164442955, i.e.
// 0x09CD334B.
// Declaring it as an ordinary protobuf fixed32 field makes it little-endian
// on the wire without any manual byte-order handling, exactly as §6
// requires.
const Magic uint32 = 164442955

const envelopeProtoPath = "xlstool/internal/codec/envelope.proto"

const envelopeProtoSource = `syntax = "proto3";

package xlstool.codec;

message Envelope {
  fixed32 magic = 1;
  string scheme = 2;
  repeated string keys = 3;
  repeated bytes datas = 4;
  string hash = 5;
}
`

var (
	envelopeOnce sync.Once
	envelopeMD   protoreflect.MessageDescriptor
	envelopeErr  error
)

func envelopeDescriptor() (protoreflect.MessageDescriptor, error) {
	envelopeOnce.Do(func() {
		compiler := protocompile.Compiler{
			Resolver: &protocompile.SourceResolver{
				Accessor: protocompile.SourceAccessorFromMap(map[string]string{
					envelopeProtoPath: envelopeProtoSource,
				}),
			},
			SourceInfoMode: protocompile.SourceInfoNone,
			Reporter:       reporter.NewReporter(nil, nil),
		}
		files, err := compiler.Compile(context.Background(), envelopeProtoPath)
		if err != nil {
			envelopeErr = fmt.Errorf("codec: compile envelope schema: %w", err)
			return
		}
		md := files[0].Messages().ByName("Envelope")
		if md == nil {
			envelopeErr = fmt.Errorf("codec: envelope schema missing Envelope message")
			return
		}
		envelopeMD = md
	})
	return envelopeMD, envelopeErr
}

// DecodeError is the DecodeError kind of spec.md §7: a magic mismatch or a
// truncated/malformed envelope. The caller treats the store as not loaded
// and returns absent on every subsequent query.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string { return "codec: decode: " + e.Msg }

// EncodeBinary builds and marshals the envelope: scheme is the message
// type's short name, keys the key-field ordering used to build the store,
// and records the top-level record list (the hierarchy is recoverable from
// keys, so only the flat list is encoded).
func EncodeBinary(scheme string, keys []string, records []record.Record) ([]byte, error) {
	md, err := envelopeDescriptor()
	if err != nil {
		return nil, err
	}
	fields := md.Fields()
	env := dynamicpb.NewMessage(md)

	env.Set(fields.ByName("magic"), protoreflect.ValueOfUint32(Magic))
	env.Set(fields.ByName("scheme"), protoreflect.ValueOfString(scheme))

	keysList := env.Mutable(fields.ByName("keys")).List()
	for _, k := range keys {
		keysList.Append(protoreflect.ValueOfString(k))
	}

	datasList := env.Mutable(fields.ByName("datas")).List()
	for _, rec := range records {
		data, err := proto.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("codec: marshal record: %w", err)
		}
		datasList.Append(protoreflect.ValueOfBytes(data))
	}

	out, err := proto.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return out, nil
}

// DecodedEnvelope is the decoded form of a binary envelope, ready to rebuild
// a Store via store.Build(md, Records, Keys).
type DecodedEnvelope struct {
	Scheme  string
	Keys    []string
	Records []record.Record
}

// DecodeBinary reads and verifies an envelope, then decodes each of its
// records against md.
func DecodeBinary(data []byte, md protoreflect.MessageDescriptor) (*DecodedEnvelope, error) {
	envMD, err := envelopeDescriptor()
	if err != nil {
		return nil, err
	}
	env := dynamicpb.NewMessage(envMD)
	if err := proto.Unmarshal(data, env); err != nil {
		return nil, &DecodeError{Msg: fmt.Sprintf("malformed envelope: %v", err)}
	}
	fields := envMD.Fields()

	magic := uint32(env.Get(fields.ByName("magic")).Uint())
	if magic != Magic {
		return nil, &DecodeError{Msg: fmt.Sprintf("magic mismatch: got %d, want %d", magic, Magic)}
	}

	scheme := env.Get(fields.ByName("scheme")).String()

	keysList := env.Get(fields.ByName("keys")).List()
	keys := make([]string, keysList.Len())
	for i := range keys {
		keys[i] = keysList.Get(i).String()
	}

	datasList := env.Get(fields.ByName("datas")).List()
	records := make([]record.Record, datasList.Len())
	for i := range records {
		rec := dynamicpb.NewMessage(md)
		if err := proto.Unmarshal(datasList.Get(i).Bytes(), rec); err != nil {
			return nil, &DecodeError{Msg: fmt.Sprintf("record %d: %v", i, err)}
		}
		records[i] = rec
	}

	return &DecodedEnvelope{Scheme: scheme, Keys: keys, Records: records}, nil
}
