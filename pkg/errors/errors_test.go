package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	derived := ErrInvestigationNotFound.WithDetail("id=42")

	assert.Equal(t, "id=42", derived.Detail)
	assert.Empty(t, ErrInvestigationNotFound.Detail)
	assert.True(t, stderrors.Is(derived, ErrInvestigationNotFound))
	assert.False(t, stderrors.Is(derived, ErrSessionNotFound))
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	base := Wrap(fmt.Errorf("dial tcp: refused"), CodeSearchFailed, "chunk search failed")
	wrapped := fmt.Errorf("investigation: %w", base)

	got := AsAppError(wrapped)
	assert.Equal(t, CodeSearchFailed, got.Code)
	assert.Equal(t, http.StatusBadGateway, got.HTTPStatus)
	assert.True(t, IsAppError(wrapped))

	unknown := AsAppError(fmt.Errorf("boom"))
	assert.Equal(t, CodeUnknown, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:          http.StatusBadRequest,
		CodeInvestigationNotFound: http.StatusNotFound,
		CodeInvalidTransition:     http.StatusConflict,
		CodeSearchUnavailable:     http.StatusServiceUnavailable,
		CodeTooManyRequests:       http.StatusTooManyRequests,
		CodeDatabaseError:         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, codeToHTTPStatus(code), "code %s", code)
	}
}
