package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var errIDNotNumeric = errors.New("id: numeric string is expected")

// CreateProductRequest is the payload of createProduct.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,notblank"`
	Description *string  `json:"description"`
	Available   *bool    `json:"available"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

// PaginationRequest is the payload of findAllProducts. Both fields are optional.
type PaginationRequest struct {
	Page  *int `json:"page" validate:"omitnil,gte=1"`
	Limit *int `json:"limit" validate:"omitnil,gte=0"`
}

// UpdateProductRequest is the payload of updateProduct: the id plus any
// subset of the mutable fields.
type UpdateProductRequest struct {
	ID          int      `json:"id" validate:"required,gt=0"`
	Name        *string  `json:"name" validate:"omitnil,notblank"`
	Description *string  `json:"description"`
	Available   *bool    `json:"available"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
}

// IDPayload is the payload of findOneProduct, disableProduct and
// removeProduct. It accepts {"id": 1}, {"id": "1"}, 1 and "1"; other fields
// of an object payload are ignored.
type IDPayload struct {
	ID int
}

func (p *IDPayload) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return errIDNotNumeric
		}
		raw = obj.ID
	}

	id, err := parseID(raw)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// parseID accepts a JSON integer or a string holding one.
func parseID(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, errIDNotNumeric
	}

	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = x
	default:
		return 0, errIDNotNumeric
	}

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, errIDNotNumeric
	}
	return id, nil
}
