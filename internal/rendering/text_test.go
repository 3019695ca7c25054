package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	html := `<html><head><style>.a { color: red; }</style></head><body>
		<h1>제목</h1>
		<div>첫 줄<br>둘째   줄</div>
		<table><tr><td>공고명</td><td>데이터 분석가</td></tr></table>
		<a href="https://example.com/apply">바로가기</a>
		<a href="#">없는 링크</a>
	</body></html>`

	text, err := PlainText(html)
	require.NoError(t, err)
	assert.Equal(t, "제목\n첫 줄\n둘째 줄\n공고명 데이터 분석가\n바로가기 (https://example.com/apply)\n없는 링크", text)
}

func TestPlainText_Empty(t *testing.T) {
	text, err := PlainText("")
	require.NoError(t, err)
	assert.Empty(t, text)
}
