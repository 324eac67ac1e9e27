package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
)

func TestDecodeExtendedJSON(t *testing.T) {
	doc, err := DecodeDocument(&messagebus.Message{
		Value: []byte(`{"_id":{"$oid":"5eb3d668b31de5d588f4292a"},"grades":[{"score":{"$numberInt":"7"}}]}`),
	})
	require.NoError(t, err)

	oid, _ := primitive.ObjectIDFromHex("5eb3d668b31de5d588f4292a")
	assert.Equal(t, bson.D{
		{Key: "_id", Value: oid},
		{Key: "grades", Value: bson.A{bson.D{{Key: "score", Value: int32(7)}}}},
	}, doc)
}

func TestDecodeProtobuf(t *testing.T) {
	payload, err := EncodeProtobuf([]byte(`{"_id":{"$oid":"5eb3d668b31de5d588f4292a"},"borough":"Bronx","address":{"coord":[-73.85,40.84]}}`))
	require.NoError(t, err)

	doc, err := DecodeDocument(&messagebus.Message{
		Value:   payload,
		Headers: map[string]string{HeaderContentType: ContentTypeProtobuf},
	})
	require.NoError(t, err)

	m := doc.Map()
	oid, _ := primitive.ObjectIDFromHex("5eb3d668b31de5d588f4292a")
	assert.Equal(t, oid, m["_id"], "Extended JSON wrappers survive the protobuf round trip")
	assert.Equal(t, "Bronx", m["borough"])
	assert.Equal(t, bson.D{{Key: "coord", Value: bson.A{-73.85, 40.84}}}, m["address"])
}

func TestDecodeRejects(t *testing.T) {
	_, err := EncodeProtobuf([]byte(`[1,2]`))
	assert.ErrorContains(t, err, "not a JSON object")

	_, err = DecodeDocument(&messagebus.Message{
		Value:   []byte(`{}`),
		Headers: map[string]string{HeaderContentType: "text/csv"},
	})
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = DecodeDocument(&messagebus.Message{
		Value:   []byte{0xff, 0xff},
		Headers: map[string]string{HeaderContentType: ContentTypeProtobuf},
	})
	assert.Error(t, err)
}
