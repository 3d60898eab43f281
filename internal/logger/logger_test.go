package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "9999******", MaskPhone("9999999999"))
	assert.Equal(t, "+91 *******", MaskPhone("+91 9876543"))
	assert.Equal(t, "***", MaskPhone("123"))
	assert.Equal(t, "", MaskPhone(""))
}

func TestOTPFields_NeverContainsFullPhone(t *testing.T) {
	fields := OTPFields("request_challenge", "9876543210", "inquiry")

	assert.Equal(t, "request_challenge", fields["op"])
	assert.Equal(t, "inquiry", fields["purpose"])
	assert.NotContains(t, fields["phone"], "543210")
}

func TestInit_FallsBackToInfo(t *testing.T) {
	Init("not-a-level")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())

	Init("debug")
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}
