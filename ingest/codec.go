package ingest

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
)

// Payload encodings, carried in the Content-Type message header.
const (
	HeaderContentType   = "Content-Type"
	ContentTypeExtJSON  = "application/ejson"
	ContentTypeProtobuf = "application/x-protobuf"
)

// DecodeDocument turns a message payload into a document. Messages
// without a Content-Type header are Extended JSON.
func DecodeDocument(message *messagebus.Message) (bson.D, error) {
	data := message.Value
	switch ct := message.Headers[HeaderContentType]; ct {
	case "", ContentTypeExtJSON:
	case ContentTypeProtobuf:
		var err error
		if data, err = protobufToExtJSON(data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// EncodeProtobuf converts one Extended JSON document into a binary
// google.protobuf.Struct. Extended JSON wrappers such as $oid survive as
// nested objects; every number becomes a double on the wire.
func EncodeProtobuf(extJSON []byte) ([]byte, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(extJSON, &s); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return proto.Marshal(&s)
}

func protobufToExtJSON(data []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protobuf document: %w", err)
	}
	return protojson.Marshal(&s)
}
