package resolver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"reqkit/logger"
	"reqkit/models"

	"github.com/lucasjones/reggen"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// pathParamPattern matches `{$P<id>}` placeholders in a template URL.
	pathParamPattern = regexp.MustCompile(`\{\$P([A-Za-z0-9_-]+)\}`)

	// base64Shape is the only base64-detection check applied to header values.
	// It does not verify length or re-validate after decode beyond the JSON
	// parse attempt; a purely numeric header value can false-positive.
	base64Shape = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
)

// UnresolvedPathParameterError reports a `{$P<id>}` placeholder with no
// mapping under url.pathParams. It aborts resolution of the current record
// only, never the whole batch.
type UnresolvedPathParameterError struct {
	Param string
}

func (e *UnresolvedPathParameterError) Error() string {
	return fmt.Sprintf("no url.pathParams mapping found for path parameter %q", e.Param)
}

// Resolve substitutes mapped values into the template and returns a fully
// resolved request descriptor. The record may be nil, in which case only
// fixed and special mappings produce values. The record is never mutated.
func Resolve(tmpl *models.RequestTemplate, mappings models.MappingSet, record models.Record) (*models.ResolvedRequest, error) {
	// Pass 1: compute a concrete value for every mapping.
	values := make(map[string]interface{}, len(mappings))
	for key, m := range mappings {
		v, err := extractValue(m, record)
		if err != nil {
			return nil, fmt.Errorf("extracting value for mapping %q: %w", key, err)
		}
		values[key] = v
	}

	// Pass 2: path parameters. All `{$P<id>}` placeholders must be mappable
	// before any substitution happens, so an error never leaves behind a
	// partially-substituted URL.
	resolvedURL := tmpl.URL
	paramKeys := map[string]string{}
	for _, match := range pathParamPattern.FindAllStringSubmatch(tmpl.URL, -1) {
		id := match[1]
		key, ok := mappings.PathParamKey(id)
		if !ok {
			return nil, &UnresolvedPathParameterError{Param: id}
		}
		paramKeys[id] = key
	}
	for id, key := range paramKeys {
		resolvedURL = strings.ReplaceAll(resolvedURL, "{$P"+id+"}", stringify(values[key]))
	}

	// Pass 3a: url.* mappings replace literal {name} tokens. Path-parameter
	// text substituted above is plain text by now and is not touched again.
	for _, key := range mappings.SortedKeys() {
		if !strings.HasPrefix(key, models.PrefixURL) || strings.HasPrefix(key, models.PrefixPathParam) {
			continue
		}
		name := strings.TrimPrefix(key, models.PrefixURL)
		resolvedURL = strings.ReplaceAll(resolvedURL, "{"+name+"}", stringify(values[key]))
	}

	// Pass 3b: query.* mappings become query-string parameters,
	// last-write-wins on duplicate names.
	resolvedURL = applyQueryMappings(resolvedURL, mappings, values)

	// Pass 3c: body.* mappings.
	body, bodyMapped := applyBodyMappings(tmpl.Body, mappings, values)

	// Pass 3d: header.* mappings.
	headers := make(map[string]string, len(tmpl.Headers))
	for k, v := range tmpl.Headers {
		headers[k] = v
	}
	applyHeaderMappings(headers, mappings, values)

	method := tmpl.NormalizedMethod()
	resolved := &models.ResolvedRequest{
		Method:  method,
		URL:     resolvedURL,
		Headers: headers,
	}

	// GET requests never carry a body, even when body mappings computed one.
	if method != "GET" && body != "" {
		resolved.Body = body
		if bodyMapped && !hasHeader(headers, "Content-Type") {
			resolved.Headers["Content-Type"] = "application/json"
		}
	}
	return resolved, nil
}

// extractValue computes the concrete value of one mapping. Source-field
// references that miss the record (including any missing intermediate key)
// yield nil rather than an error; downstream substitution treats nil as the
// empty string.
func extractValue(m models.FieldMapping, record models.Record) (interface{}, error) {
	switch m.Type {
	case models.MappingTypeSource:
		if record == nil || m.SourceField == "" {
			return nil, nil
		}
		result := gjson.GetBytes(record, m.SourceField)
		if !result.Exists() {
			return nil, nil
		}
		return result.Value(), nil
	case models.MappingTypeFixed:
		return fixedValue(m)
	case models.MappingTypeSpecial:
		return GenerateSpecialValue(m.Generator)
	default:
		return nil, fmt.Errorf("unknown mapping type %q", m.Type)
	}
}

// fixedValue honors the mapping's declared type. When flagged random, the
// pattern drives regex-based random generation instead of the literal.
func fixedValue(m models.FieldMapping) (interface{}, error) {
	if m.Random && m.Pattern != "" {
		generated, err := reggen.Generate(m.Pattern, 16)
		if err != nil {
			return nil, fmt.Errorf("generating random value from pattern %q: %w", m.Pattern, err)
		}
		return generated, nil
	}

	switch m.ValueType {
	case models.FixedTypeNumber:
		switch v := m.Value.(type) {
		case float64:
			return v, nil
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("fixed number value %q: %w", v, err)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("fixed number value has unexpected type %T", m.Value)
		}
	case models.FixedTypeBoolean:
		switch v := m.Value.(type) {
		case bool:
			return v, nil
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("fixed boolean value %q: %w", v, err)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("fixed boolean value has unexpected type %T", m.Value)
		}
	case models.FixedTypeDate, models.FixedTypeString, "":
		return stringify(m.Value), nil
	default:
		return nil, fmt.Errorf("unknown fixed value type %q", m.ValueType)
	}
}

func applyQueryMappings(rawURL string, mappings models.MappingSet, values map[string]interface{}) string {
	keys := mappings.SortedKeys()
	hasQuery := false
	for _, key := range keys {
		if strings.HasPrefix(key, models.PrefixQuery) {
			hasQuery = true
			break
		}
	}
	if !hasQuery {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		logger.Debug("resolver: cannot parse URL %q for query mappings: %v", rawURL, err)
		return rawURL
	}
	q := parsed.Query()
	for _, key := range keys {
		if !strings.HasPrefix(key, models.PrefixQuery) {
			continue
		}
		name := strings.TrimPrefix(key, models.PrefixQuery)
		q.Set(name, stringify(values[key]))
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// applyBodyMappings navigates/creates nested structure inside the body and
// overwrites leaf values. A string body is parsed as JSON first; a parse
// failure silently resets the body to an empty object (known lossy fallback).
// The second return reports whether any body mapping was applied.
func applyBodyMappings(body string, mappings models.MappingSet, values map[string]interface{}) (string, bool) {
	keys := mappings.SortedKeys()
	mapped := false
	for _, key := range keys {
		if !strings.HasPrefix(key, models.PrefixBody) {
			continue
		}
		if !mapped {
			if strings.TrimSpace(body) == "" || !gjson.Valid(body) {
				body = "{}"
			}
			mapped = true
		}
		path := strings.TrimPrefix(key, models.PrefixBody)
		value := values[key]
		if value == nil {
			value = ""
		}
		updated, err := sjson.Set(body, path, value)
		if err != nil {
			logger.Debug("resolver: setting body path %q failed: %v", path, err)
			continue
		}
		body = updated
	}
	return body, mapped
}

// applyHeaderMappings updates header values in place. When the mapping path
// addresses a leaf beyond the header name and the original header value is
// base64-shaped JSON, the leaf inside the decoded object is updated and the
// object re-encoded; any decode or parse failure falls back to substituting
// the mapping value verbatim.
func applyHeaderMappings(headers map[string]string, mappings models.MappingSet, values map[string]interface{}) {
	for _, key := range mappings.SortedKeys() {
		if !strings.HasPrefix(key, models.PrefixHeader) {
			continue
		}
		rest := strings.TrimPrefix(key, models.PrefixHeader)
		headerName, leafPath, hasLeaf := strings.Cut(rest, ".")
		value := values[key]

		if !hasLeaf {
			headers[headerName] = stringify(value)
			continue
		}

		original := headers[headerName]
		if original != "" && base64Shape.MatchString(original) {
			decoded, err := base64.StdEncoding.DecodeString(original)
			if err == nil && gjson.ValidBytes(decoded) {
				if value == nil {
					value = ""
				}
				updated, err := sjson.Set(string(decoded), leafPath, value)
				if err == nil {
					headers[headerName] = base64.StdEncoding.EncodeToString([]byte(updated))
					continue
				}
			}
		}
		headers[headerName] = stringify(value)
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// stringify renders a mapped value for plain-text substitution. nil (a missing
// source field) becomes the empty string; numbers keep their JSON rendering.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
