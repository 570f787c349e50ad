package curlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleGet(t *testing.T) {
	tmpl, err := Parse(`curl https://api.example.com/users`)
	require.NoError(t, err)
	assert.Equal(t, "GET", tmpl.Method)
	assert.Equal(t, "https://api.example.com/users", tmpl.URL)
	assert.Empty(t, tmpl.Body)
}

func TestParsePostWithHeadersAndBody(t *testing.T) {
	cmd := `curl -X POST 'https://api.example.com/users' ` +
		`-H 'Content-Type: application/json' ` +
		`-H 'Authorization: Bearer tok123' ` +
		`--data-raw '{"name":"Alice","role":"admin"}'`

	tmpl, err := Parse(cmd)
	require.NoError(t, err)
	assert.Equal(t, "POST", tmpl.Method)
	assert.Equal(t, "https://api.example.com/users", tmpl.URL)
	assert.Equal(t, "application/json", tmpl.Headers["Content-Type"])
	assert.Equal(t, "Bearer tok123", tmpl.Headers["Authorization"])
	assert.Equal(t, `{"name":"Alice","role":"admin"}`, tmpl.Body)
}

func TestParseDataImpliesPost(t *testing.T) {
	tmpl, err := Parse(`curl https://h/login -d 'user=a' -d 'pass=b'`)
	require.NoError(t, err)
	assert.Equal(t, "POST", tmpl.Method)
	assert.Equal(t, "user=a&pass=b", tmpl.Body)
}

func TestParseMultilineCommand(t *testing.T) {
	cmd := "curl 'https://h/api' \\\n  -H 'Accept: application/json' \\\n  --compressed"
	tmpl, err := Parse(cmd)
	require.NoError(t, err)
	assert.Equal(t, "https://h/api", tmpl.URL)
	assert.Equal(t, "application/json", tmpl.Headers["Accept"])
}

func TestParseBasicAuth(t *testing.T) {
	tmpl, err := Parse(`curl -u admin:secret https://h/private`)
	require.NoError(t, err)
	// base64("admin:secret")
	assert.Equal(t, "Basic YWRtaW46c2VjcmV0", tmpl.Headers["Authorization"])
}

func TestParseCookieAndUserAgent(t *testing.T) {
	tmpl, err := Parse(`curl -b 'session=abc' -A 'reqkit/1.0' https://h/`)
	require.NoError(t, err)
	assert.Equal(t, "session=abc", tmpl.Headers["Cookie"])
	assert.Equal(t, "reqkit/1.0", tmpl.Headers["User-Agent"])
}

func TestParseRejectsNonCurl(t *testing.T) {
	_, err := Parse(`wget https://example.com`)
	assert.Error(t, err)
}

func TestParseRejectsMissingURL(t *testing.T) {
	_, err := Parse(`curl -X POST -H 'X: y'`)
	assert.Error(t, err)
}

func TestParseRejectsForm(t *testing.T) {
	_, err := Parse(`curl -F 'file=@photo.png' https://h/upload`)
	assert.Error(t, err)
}

func TestParseKeepsPlaceholders(t *testing.T) {
	tmpl, err := Parse(`curl 'https://h/users/{$PuserId}/items/{itemId}'`)
	require.NoError(t, err)
	assert.Equal(t, "https://h/users/{$PuserId}/items/{itemId}", tmpl.URL)
}
