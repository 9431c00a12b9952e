package vesync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{CodeSuccess, KindNone},
		{CodeInvalidCredentials, KindCredential},
		{-11201000, KindUnknown},
		{CodeCrossRegion, KindCrossRegion},
		{CodeCrossRegionLegacy, KindCrossRegion},
		{CodeTokenExpired, KindTokenInvalid},
		{CodeTokenInvalid, KindTokenInvalid},
		{-1, KindUnknown},
		{11000000, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCode(tt.code))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "credential", KindCredential.String())
	assert.Equal(t, "cross_region", KindCrossRegion.String())
	assert.Equal(t, "token_invalid", KindTokenInvalid.String())
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestBusinessError(t *testing.T) {
	err := newBusinessError(CodeTokenExpired, "token expired")
	assert.Equal(t, KindTokenInvalid, err.Kind)
	assert.Equal(t, "vesync: business error -11012001 (token_invalid): token expired", err.Error())
	assert.Equal(t, "vesync: business error -1 (unknown)", newBusinessError(-1, "").Error())

	wrapped := fmt.Errorf("send command: %w", err)
	assert.True(t, IsTokenInvalid(wrapped))
	assert.False(t, IsCrossRegion(wrapped))
	assert.Equal(t, KindTokenInvalid, KindOf(wrapped))
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 502, Message: "bad gateway"}
	assert.Equal(t, "vesync: API error 502: bad gateway", err.Error())
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(&APIError{StatusCode: 403}))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindCrossRegion, KindOf(newBusinessError(CodeCrossRegion, "")))
}

func TestIsInvalidCredentials(t *testing.T) {
	assert.True(t, IsInvalidCredentials(ErrInvalidCredentials))
	assert.True(t, IsInvalidCredentials(fmt.Errorf("start: %w", ErrInvalidCredentials)))
	assert.True(t, IsInvalidCredentials(newBusinessError(CodeInvalidCredentials, "")))
	assert.False(t, IsInvalidCredentials(ErrAuthenticationFailed))
}
