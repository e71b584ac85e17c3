package model

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// Wire round-trips for the coordinator-facing transport. The platform posts
// updates as JSON or CBOR depending on client capability.

func UpdateFromJSON(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, err
	}

	return u, nil
}

func UpdateFromCBOR(data []byte) (Update, error) {
	var u Update
	if err := cbor.Unmarshal(data, &u); err != nil {
		return Update{}, err
	}

	return u, nil
}

func GlobalModelFromJSON(data []byte) (GlobalModel, error) {
	var g GlobalModel
	if err := json.Unmarshal(data, &g); err != nil {
		return GlobalModel{}, err
	}

	return g, nil
}

func GlobalModelFromCBOR(data []byte) (GlobalModel, error) {
	var g GlobalModel
	if err := cbor.Unmarshal(data, &g); err != nil {
		return GlobalModel{}, err
	}

	return g, nil
}

func ToJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func ToCBOR(v any) ([]byte, error) {
	return cbor.Marshal(v)
}
