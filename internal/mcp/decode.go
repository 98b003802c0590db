package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// bindArgs copies the arguments of a tool call into the input of an
// operation. Failures are INVALID_REQUEST errors; a mistyped argument is
// named in the message and in the "argument" detail.
func bindArgs[T any](req mcp.CallToolRequest) (T, error) {
	var in T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return in, errors.NewInvalidRequest("arguments are not JSON: " + err.Error())
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			e := errors.NewInvalidRequest(fmt.Sprintf("argument %s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value))
			e.Details = map[string]any{"argument": typeErr.Field}
			return in, e
		}
		return in, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return in, nil
}
