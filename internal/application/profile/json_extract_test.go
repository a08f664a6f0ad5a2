package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"surrounding prose", "분석 결과입니다:\n{\"a\":1}\n감사합니다", `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"array", `[1,2,3]`, `[1,2,3]`},
		{"empty", "", ""},
		{"no json", "그냥 텍스트", "그냥 텍스트"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestIsResponseFormatUnsupportedError(t *testing.T) {
	assert.False(t, IsResponseFormatUnsupportedError(nil))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("rate limit exceeded")))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("response_format is not supported")))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("Invalid parameter: json_schema")))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("unknown parameter: 'response'")))
}
