package resolver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"reqkit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMappings(t *testing.T, raw string) models.MappingSet {
	t.Helper()
	set := models.MappingSet{}
	require.NoError(t, json.Unmarshal([]byte(raw), &set))
	return set
}

func TestResolvePathParameter(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/{$Pid}",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{
		"url.pathParams.id": {"type": "fixed", "value": "user123"}
	}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://h/user123", resolved.URL)
}

func TestResolveMissingPathParameterFails(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "GET",
		URL:    "http://h/users/{$PuserId}/orders/{$PorderId}",
	}
	mappings := mustMappings(t, `{
		"url.pathParams.userId": {"type": "fixed", "value": "u1"}
	}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.Error(t, err)
	assert.Nil(t, resolved, "a failed resolution must not produce a partially-substituted URL")

	var unresolved *UnresolvedPathParameterError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "orderId", unresolved.Param)
}

func TestResolveSourceFieldFromRecord(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/{$Pid}",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{
		"url.pathParams.id": "user.id",
		"body.name": "user.profile.name"
	}`)
	record := models.Record(`{"user":{"id":"user123","profile":{"name":"Alice"}}}`)

	resolved, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)
	assert.Equal(t, "http://h/user123", resolved.URL)
	assert.JSONEq(t, `{"name":"Alice"}`, resolved.Body)
	assert.Equal(t, "application/json", resolved.Headers["Content-Type"])
}

func TestResolveMissingSourceFieldYieldsEmpty(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{"body.owner": "user.missing.deeply"}`)
	record := models.Record(`{"user":{"id":1}}`)

	resolved, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":""}`, resolved.Body)
}

func TestResolveBodyAutoVivification(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{"body.a.b.c": {"type": "fixed", "value": "x"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":{"c":"x"}}}`, resolved.Body)
}

func TestResolveMalformedBodyResetsToEmptyObject(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   "{not valid json",
	}
	mappings := mustMappings(t, `{"body.k": {"type": "fixed", "value": "v"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, resolved.Body)
}

func TestResolveGETNeverCarriesBody(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "GET",
		URL:    "http://h/items",
		Body:   `{"seed":1}`,
	}
	mappings := mustMappings(t, `{"body.k": {"type": "fixed", "value": "v"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Empty(t, resolved.Body)
	assert.NotContains(t, resolved.Headers, "Content-Type")
}

func TestResolveBase64HeaderRoundTrip(t *testing.T) {
	original := base64.StdEncoding.EncodeToString([]byte(`{"a":{"b":1}}`))
	tmpl := &models.RequestTemplate{
		Method:  "POST",
		URL:     "http://h/items",
		Headers: map[string]string{"X": original},
		Body:    "{}",
	}
	mappings := mustMappings(t, `{"header.X.a.b": {"type": "fixed", "value": 2, "value_type": "number"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(resolved.Headers["X"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":2}}`, string(decoded))
}

func TestResolveNonBase64HeaderFallsBackToVerbatim(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method:  "POST",
		URL:     "http://h/items",
		Headers: map[string]string{"X-Trace": "trace me, not base64"},
		Body:    "{}",
	}
	mappings := mustMappings(t, `{"header.X-Trace.a.b": {"type": "fixed", "value": "replaced"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, "replaced", resolved.Headers["X-Trace"])
}

func TestResolveHeaderWithoutLeafReplacesWholeValue(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method:  "GET",
		URL:     "http://h/items",
		Headers: map[string]string{"Authorization": "{token}"},
	}
	mappings := mustMappings(t, `{"header.Authorization": "auth.bearer"}`)
	record := models.Record(`{"auth":{"bearer":"Bearer abc123"}}`)

	resolved, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc123", resolved.Headers["Authorization"])
}

func TestResolveQueryMappingsLastWriteWins(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "GET",
		URL:    "http://h/search?limit=10",
	}
	mappings := mustMappings(t, `{
		"query.limit": {"type": "fixed", "value": "25"},
		"query.q": "search.term"
	}`)
	record := models.Record(`{"search":{"term":"widgets"}}`)

	resolved, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)
	assert.Contains(t, resolved.URL, "limit=25")
	assert.Contains(t, resolved.URL, "q=widgets")
	assert.NotContains(t, resolved.URL, "limit=10")
}

func TestResolveURLTokenSubstitution(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "GET",
		URL:    "http://h/{version}/users",
	}
	mappings := mustMappings(t, `{"url.version": {"type": "fixed", "value": "v2"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://h/v2/users", resolved.URL)
}

func TestResolveUnrecognizedPrefixIsNoOp(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   `{"a":1}`,
	}
	mappings := mustMappings(t, `{"cookie.session": {"type": "fixed", "value": "ignored"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://h/items", resolved.URL)
	assert.Equal(t, `{"a":1}`, resolved.Body)
}

func TestResolveIdempotentWithoutGenerators(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method:  "POST",
		URL:     "http://h/{$Pid}/items?page=1",
		Headers: map[string]string{"X-App": "reqkit"},
		Body:    "{}",
	}
	mappings := mustMappings(t, `{
		"url.pathParams.id": "user.id",
		"query.page": {"type": "fixed", "value": "3"},
		"body.owner": "user.name",
		"header.X-App": {"type": "fixed", "value": "reqkit-test"}
	}`)
	record := models.Record(`{"user":{"id":"u9","name":"Niko"}}`)

	first, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)
	second, err := Resolve(tmpl, mappings, record)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.Headers, second.Headers)
	assert.Equal(t, first.Body, second.Body)
}

func TestResolveSpecialValuesDifferAcrossInvocations(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{"body.id": {"type": "special", "generator": "uuid"}}`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		resolved, err := Resolve(tmpl, mappings, nil)
		require.NoError(t, err)
		var body struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(resolved.Body), &body))
		assert.False(t, seen[body.ID], "generator repeated value %q", body.ID)
		seen[body.ID] = true
	}
}

func TestResolveFixedRandomPattern(t *testing.T) {
	tmpl := &models.RequestTemplate{
		Method: "POST",
		URL:    "http://h/items",
		Body:   "{}",
	}
	mappings := mustMappings(t, `{"body.code": {"type": "fixed", "random": true, "pattern": "[A-Z]{4}-[0-9]{3}"}}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(resolved.Body), &body))
	assert.Regexp(t, `^[A-Z]{4}-[0-9]{3}$`, body.Code)
}

func TestResolveNilRecordWithOnlyFixedAndSpecial(t *testing.T) {
	tmpl := &models.RequestTemplate{
		URL: "http://h/ping",
	}
	mappings := mustMappings(t, `{
		"query.fixed": {"type": "fixed", "value": "yes"},
		"query.stamp": {"type": "special", "generator": "date_only"}
	}`)

	resolved, err := Resolve(tmpl, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, "GET", resolved.Method)
	assert.Contains(t, resolved.URL, "fixed=yes")
}
