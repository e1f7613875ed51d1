package executor

import (
	"testing"

	"github.com/compss-go/pipeworker/internal/param"
	"github.com/stretchr/testify/assert"
)

func TestSuccessReplyNoReturns(t *testing.T) {
	assert.Equal(t, "endTask 42 0 ", SuccessReply("42", nil))
}

func TestSuccessReplyWithReturns(t *testing.T) {
	got := SuccessReply("42", []ReturnEncoding{
		{NewType: param.ContentINT, NewValue: ""},
		{NewType: param.ContentEXTERNALPSCO, NewValue: "psco-id-1"},
	})
	assert.Equal(t, "endTask 42 0 8 null 5 psco-id-1", got)
}

func TestDomainExceptionReplyReplacesSpaces(t *testing.T) {
	assert.Equal(t, "compssExceptionTask 42 boom_reason", DomainExceptionReply("42", "boom reason"))
}

func TestOtherExceptionReply(t *testing.T) {
	assert.Equal(t, "endTask 42 7", OtherExceptionReply("42", 7))
}
