package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"feedlab/errors"
)

func TestEnvelope_UnmarshalJSON(t *testing.T) {
	req := require.New(t)

	var env Envelope
	req.NoError(json.Unmarshal([]byte(`{"type":"send","content":"hello"}`), &env))
	req.Equal(TypeSend, env.Type)

	frame, err := decode[SendFrame](env)
	req.NoError(err)
	req.Equal("hello", frame.Content)
}

func TestEnvelope_RejectsMissingType(t *testing.T) {
	req := require.New(t)

	var env Envelope
	req.Error(json.Unmarshal([]byte(`{"content":"hello"}`), &env))
	req.Error(json.Unmarshal([]byte(`not json`), &env))
}

func TestErrorCode_Mapping(t *testing.T) {
	req := require.New(t)

	req.Equal("empty_content", errorCode(errors.ErrEmptyContent))
	req.Equal("not_authenticated", errorCode(errors.ErrNotAuthenticated))
	req.Equal("forbidden", errorCode(errors.ErrForbidden))
	req.Equal("not_found", errorCode(errors.ErrMessageNotFound))

	// Wrapped storage failures still map to their sentinel.
	wrapped := fmt.Errorf("%w: disk full", errors.ErrStorage)
	req.Equal("storage", errorCode(wrapped))

	req.Equal("internal", errorCode(fmt.Errorf("boom")))
}
