package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFileRef_Normalize(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name    string
		ref     FileRef
		want    primitive.ObjectID
		wantErr string
	}{
		{"native", NativeRef(id), id, ""},
		{"string", StringRef(id.Hex()), id, ""},
		{"wrapped", WrappedRef(id.Hex()), id, ""},
		{"zero native", NativeRef(primitive.NilObjectID), primitive.NilObjectID, "empty object id"},
		{"bad string", StringRef("abc"), primitive.NilObjectID, `string value "abc"`},
		{"bad wrapped", WrappedRef("zz"), primitive.NilObjectID, `wrapped value "zz"`},
		{"missing", FileRef{}, primitive.NilObjectID, "missing fileId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ref.Normalize()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedReference)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileRef_DecodeFromBSON(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name     string
		value    any
		wantKind RefKind
		wantErr  bool
	}{
		{"object id", id, RefNative, false},
		{"hex string", id.Hex(), RefString, false},
		{"extended json", bson.D{{Key: "$oid", Value: id.Hex()}}, RefWrapped, false},
		{"document without oid", bson.D{{Key: "id", Value: id.Hex()}}, RefUnknown, true},
		{"number", int32(42), RefUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.D{{Key: "fileId", Value: tt.value}})
			require.NoError(t, err)

			var entry FileEntry
			require.NoError(t, bson.Unmarshal(raw, &entry))
			assert.Equal(t, tt.wantKind, entry.FileID.Kind)

			got, err := entry.FileID.Normalize()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}

func TestFileRef_UnknownTypeNamedInError(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "fileId", Value: true}})
	require.NoError(t, err)

	var entry FileEntry
	require.NoError(t, bson.Unmarshal(raw, &entry))

	_, err = entry.FileID.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}

func TestFileRef_MarshalJSON(t *testing.T) {
	id := primitive.NewObjectID()
	job := Job{
		JobID: "job-1",
		Files: []FileEntry{
			{FileID: FileRef{Kind: RefNative, Native: id}, Filename: "a.pdf"},
			{FileID: FileRef{Kind: RefString, Str: "bad\x01id"}, Filename: "b.pdf"},
			{FileID: FileRef{Kind: RefString, Str: "\xff\xfe"}, Filename: "c.pdf"},
		},
	}

	raw, err := json.Marshal(job)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))

	var decoded struct {
		Files []struct {
			FileID string `json:"fileId"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Files, 3)
	assert.Equal(t, id.Hex(), decoded.Files[0].FileID)
	assert.Equal(t, "bad\x01id", decoded.Files[1].FileID)
}
