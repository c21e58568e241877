package rpc

import (
	"encoding/json"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
)

// Reply is the body of every reply message: exactly one of Response or Err is set.
//
//	{"response": {"ok": true, "message": "Product fetched!", "data": {...}}}
//	{"err": {"message": "...", "error": "Not Found", "code": 404}}
type Reply struct {
	Response json.RawMessage `json:"response,omitempty"`
	Err      *errrpc.Error   `json:"err,omitempty"`
}

// encodeReply builds the reply payload for a handler result. A body that
// cannot be encoded becomes an internal error reply.
func encodeReply(body any, err error) ([]byte, *errrpc.Error) {
	if err != nil {
		return encodeError(errrpc.Normalize(err))
	}

	raw, mErr := json.Marshal(body)
	if mErr != nil {
		return encodeError(errrpc.Internal(mErr.Error(), ""))
	}

	data, _ := json.Marshal(Reply{Response: raw})
	return data, nil
}

func encodeError(rpcErr *errrpc.Error) ([]byte, *errrpc.Error) {
	// *errrpc.Error holds only strings and ints; marshalling cannot fail.
	data, _ := json.Marshal(Reply{Err: rpcErr})
	return data, rpcErr
}
