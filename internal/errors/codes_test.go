package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeError_Format(t *testing.T) {
	err := InvalidField("hour", "25")
	assert.Equal(t, `[INVALID_FIELD] invalid value "25" for field hour`, err.Error())

	cause := stderrors.New("boom")
	wrapped := Wrap(cause, ErrCodeMalformedInput, "bad tagger output")
	assert.Equal(t, "[MALFORMED_INPUT] bad tagger output: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(InvalidDate("feb 30"), ErrCodeInvalidDate))
	assert.False(t, IsCode(InvalidDate("feb 30"), ErrCodeInvalidField))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeInvalidDate))
}

func TestGetCodeFromError(t *testing.T) {
	assert.Equal(t, ErrCodeInsufficientFields, GetCodeFromError(InsufficientFields("x"), ErrCodeInvalidArgument))
	assert.Equal(t, ErrCodeInvalidArgument, GetCodeFromError(stderrors.New("plain"), ErrCodeInvalidArgument))
}

func TestWithContext(t *testing.T) {
	err := MalformedInput("missing colon").WithContext("offset", 15)
	assert.Equal(t, 15, err.Context["offset"])
}
