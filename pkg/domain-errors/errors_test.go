package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := New(CodeInvalidAmount, "too small")
	assert.True(t, HasCode(base, CodeInvalidAmount))
	assert.False(t, HasCode(base, CodeNotFound))

	wrapped := Wrap(base, CodeInternal, "saving failed")
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeInvalidAmount), "inner codes stay visible through wrapping")

	plain := fmt.Errorf("context: %w", base)
	assert.True(t, HasCode(plain, CodeInvalidAmount))

	assert.False(t, HasCode(nil, CodeInternal))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "x")))
	assert.Equal(t, CodeInternal, CodeOf(Wrap(New(CodeNotFound, "x"), CodeInternal, "y")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidAmount:        http.StatusBadRequest,
		CodeDeadlinePassed:       http.StatusBadRequest,
		CodeUnauthorized:         http.StatusUnauthorized,
		CodeInvalidKYC:           http.StatusForbidden,
		CodeNotOwner:             http.StatusForbidden,
		CodeNotFound:             http.StatusNotFound,
		CodeAlreadyVoted:         http.StatusConflict,
		CodeRefundAlreadyClaimed: http.StatusConflict,
		CodeQuorumNotMet:         http.StatusConflict,
		CodeInsufficientFunds:    http.StatusBadGateway,
		CodeInternal:             http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := Wrap(errors.New("disk full"), CodeInternal, "saving failed")
	assert.Contains(t, err.Error(), "internal")
	assert.Contains(t, err.Error(), "saving failed")
	assert.Contains(t, err.Error(), "disk full")

	var de *Error
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "disk full", errors.Unwrap(de).Error())
}
