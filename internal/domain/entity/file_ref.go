package entity

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefKind tags the encoding a file reference was stored with.
type RefKind int

const (
	RefUnknown RefKind = iota
	RefNative          // BSON ObjectId
	RefString          // hex string
	RefWrapped         // {"$oid": "<hex>"} as found in JSON exports
)

func (k RefKind) String() string {
	switch k {
	case RefNative:
		return "native"
	case RefString:
		return "string"
	case RefWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// FileRef is a content-store reference in any of the accepted encodings.
type FileRef struct {
	Kind   RefKind
	Native primitive.ObjectID
	Str    string
	// raw type of an unrecognised value, kept for error messages
	rawType bsontype.Type
}

func NativeRef(id primitive.ObjectID) FileRef { return FileRef{Kind: RefNative, Native: id} }
func StringRef(s string) FileRef              { return FileRef{Kind: RefString, Str: s} }
func WrappedRef(s string) FileRef             { return FileRef{Kind: RefWrapped, Str: s} }

// Normalize returns the canonical content id.
func (r FileRef) Normalize() (primitive.ObjectID, error) {
	switch r.Kind {
	case RefNative:
		if r.Native.IsZero() {
			return primitive.NilObjectID, fmt.Errorf("%w: empty object id", ErrMalformedReference)
		}
		return r.Native, nil
	case RefString, RefWrapped:
		id, err := primitive.ObjectIDFromHex(r.Str)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("%w: %s value %q is not an object id", ErrMalformedReference, r.Kind, r.Str)
		}
		return id, nil
	default:
		if r.rawType != 0 {
			return primitive.NilObjectID, fmt.Errorf("%w: unrecognized fileId of bson type %s", ErrMalformedReference, r.rawType)
		}
		return primitive.NilObjectID, fmt.Errorf("%w: missing fileId", ErrMalformedReference)
	}
}

func (r FileRef) String() string {
	switch r.Kind {
	case RefNative:
		return r.Native.Hex()
	case RefString, RefWrapped:
		return r.Str
	default:
		return "<unknown>"
	}
}

func (r *FileRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = NativeRef(rv.ObjectID())
	case bsontype.String:
		*r = StringRef(rv.StringValue())
	case bsontype.EmbeddedDocument:
		oid, err := rv.Document().LookupErr("$oid")
		if err != nil {
			*r = FileRef{rawType: t}
			return nil
		}
		s, ok := oid.StringValueOK()
		if !ok {
			*r = FileRef{rawType: t}
			return nil
		}
		*r = WrappedRef(s)
	default:
		// decoding must not fail the whole job document; Normalize reports it
		*r = FileRef{rawType: t}
	}
	return nil
}

func (r FileRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch r.Kind {
	case RefNative:
		return bson.MarshalValue(r.Native)
	case RefString:
		return bson.MarshalValue(r.Str)
	case RefWrapped:
		return bson.MarshalValue(bson.D{{Key: "$oid", Value: r.Str}})
	default:
		return bson.MarshalValue(nil)
	}
}

func (r FileRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
