package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// IDList is a set of document ids kept in insertion order. It decodes from a
// single string as well as from an array, so products written before a
// product could carry several extras groups still load.
type IDList []string

// NewIDList trims, drops blanks and removes duplicates.
func NewIDList(values ...string) IDList {
	seen := make(map[string]struct{}, len(values))
	out := make(IDList, 0, len(values))
	for _, v := range values {
		id := strings.TrimSpace(v)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (l IDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

func (l *IDList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*l = IDList{}
		return nil
	case bsontype.Array:
		var values []string
		if err := bson.UnmarshalValue(t, data, &values); err != nil {
			return err
		}
		*l = NewIDList(values...)
		return nil
	case bsontype.String:
		var value string
		if err := bson.UnmarshalValue(t, data, &value); err != nil {
			return err
		}
		*l = NewIDList(value)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into IDList", t)
	}
}

// MarshalBSONValue always writes an array, never null.
func (l IDList) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if l == nil {
		return bson.MarshalValue([]string{})
	}
	return bson.MarshalValue([]string(l))
}
