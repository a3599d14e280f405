package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponseStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Given token not valid"}`, KindAuthentication, "Given token not valid"},
		{"not found", http.StatusNotFound, `{"error":"Room not found"}`, KindNotFound, "Room not found"},
		{"duplicate reaction", http.StatusBadRequest, `{"error":"Reaction already exists for this message"}`, KindDuplicateReaction, DuplicateReactionMessage},
		{"detail", http.StatusBadRequest, `{"detail":"bad input"}`, KindValidation, "bad input"},
		{"non field", http.StatusBadRequest, `{"non_field_errors":["a","b"]}`, KindValidation, "a, b"},
		{"fields", http.StatusBadRequest, `{"name":["required"],"room_type":["invalid"]}`, KindValidation, "name: required | room_type: invalid"},
		{"server", http.StatusBadGateway, `oops`, KindServer, "failed to fetch rooms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := FromResponse("fetch rooms", tc.status, []byte(tc.body))
			assert.Equal(t, tc.kind, err.Kind)
			assert.Equal(t, tc.msg, err.Message)
			assert.Equal(t, tc.status, err.Status)
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("add reaction: %w", New(KindDuplicateReaction, "add reaction", DuplicateReactionMessage))

	assert.True(t, errors.Is(err, ErrDuplicateReaction))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindDuplicateReaction, KindOf(err))
}

func TestFromKeepsClassifiedErrors(t *testing.T) {
	orig := New(KindWebSocket, "send message", "channel not open")
	require.Same(t, orig, From("other", fmt.Errorf("wrapped: %w", orig)))

	plain := From("op", errors.New("boom"))
	assert.Equal(t, KindServer, plain.Kind)
	assert.Nil(t, From("op", nil))
}
