// Package curlparse turns a pasted curl command line into a request template.
package curlparse

import (
	"encoding/base64"
	"fmt"
	"strings"

	"reqkit/models"

	shellwords "github.com/mattn/go-shellwords"
)

// Parse extracts method, URL, headers and body from a curl command string.
// Only the flags commonly produced by browser/devtools "copy as curl" are
// supported; unknown flags are skipped with their argument when they look
// like they take one.
func Parse(command string) (*models.RequestTemplate, error) {
	command = strings.TrimSpace(command)
	// Line continuations from copy-pasted multi-line commands.
	command = strings.ReplaceAll(command, "\\\n", " ")
	command = strings.ReplaceAll(command, "\\\r\n", " ")

	tokens, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("tokenizing curl command: %w", err)
	}
	if len(tokens) == 0 || tokens[0] != "curl" {
		return nil, fmt.Errorf("not a curl command")
	}

	tmpl := &models.RequestTemplate{
		Headers: map[string]string{},
	}
	methodSet := false
	dataSeen := false

	i := 1
	for i < len(tokens) {
		tok := tokens[i]
		switch {
		case tok == "-X" || tok == "--request":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.Method = strings.ToUpper(arg)
			methodSet = true
			i = next
		case tok == "-H" || tok == "--header":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			name, value, ok := strings.Cut(arg, ":")
			if !ok {
				return nil, fmt.Errorf("malformed header %q", arg)
			}
			tmpl.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
			i = next
		case tok == "-d" || tok == "--data" || tok == "--data-raw" || tok == "--data-binary" || tok == "--data-ascii":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			// curl concatenates repeated data flags with '&'
			if dataSeen {
				tmpl.Body += "&" + arg
			} else {
				tmpl.Body = arg
			}
			dataSeen = true
			i = next
		case tok == "-u" || tok == "--user":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(arg))
			i = next
		case tok == "-A" || tok == "--user-agent":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.Headers["User-Agent"] = arg
			i = next
		case tok == "-e" || tok == "--referer":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.Headers["Referer"] = arg
			i = next
		case tok == "-b" || tok == "--cookie":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.Headers["Cookie"] = arg
			i = next
		case tok == "--url":
			arg, next, err := takeArg(tokens, i, tok)
			if err != nil {
				return nil, err
			}
			tmpl.URL = arg
			i = next
		case tok == "-F" || tok == "--form":
			return nil, fmt.Errorf("multipart form data (-F) is not supported")
		case tok == "--compressed" || tok == "-s" || tok == "--silent" || tok == "-k" || tok == "--insecure" || tok == "-L" || tok == "--location" || tok == "-i" || tok == "--include" || tok == "-v" || tok == "--verbose":
			// no-argument flags we can ignore
			i++
		case strings.HasPrefix(tok, "-"):
			// Unknown flag; if the next token is not a flag or URL, assume
			// it is this flag's argument and skip both.
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !looksLikeURL(tokens[i+1]) {
				i += 2
			} else {
				i++
			}
		default:
			if tmpl.URL != "" {
				return nil, fmt.Errorf("multiple URLs in curl command: %q and %q", tmpl.URL, tok)
			}
			tmpl.URL = tok
			i++
		}
	}

	if tmpl.URL == "" {
		return nil, fmt.Errorf("curl command has no URL")
	}
	// curl's own rule: a data payload without an explicit method implies POST.
	if !methodSet {
		if dataSeen {
			tmpl.Method = "POST"
		} else {
			tmpl.Method = "GET"
		}
	}
	if !models.AllowedMethods[tmpl.Method] {
		return nil, fmt.Errorf("unsupported HTTP method %q", tmpl.Method)
	}
	return tmpl, nil
}

func takeArg(tokens []string, i int, flag string) (string, int, error) {
	if i+1 >= len(tokens) {
		return "", 0, fmt.Errorf("flag %s is missing its argument", flag)
	}
	return tokens[i+1], i + 2, nil
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
