package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reqkit/config"
	"reqkit/logger"
	"reqkit/models"

	"github.com/andybalholm/brotli"
)

// Executor sends resolved requests and turns the outcome (including transport
// failures) into ExecutionResult rows. Transport errors are recorded with
// Success=false, never returned as errors, so one bad record cannot abort a
// batch.
type Executor struct {
	client        *http.Client
	allowLoopback bool
}

func NewExecutor(timeout time.Duration, skipTLSVerify, allowLoopback bool) *Executor {
	if skipTLSVerify {
		logger.Warn("Executor: TLS certificate verification is DISABLED for outgoing requests.")
	}
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: skipTLSVerify},
	}
	return &Executor{
		client: &http.Client{
			Transport: tr,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Redirect responses are results in their own right.
				return http.ErrUseLastResponse
			},
		},
		allowLoopback: allowLoopback,
	}
}

// NewExecutorFromConfig builds an Executor from the runner section of the
// loaded configuration.
func NewExecutorFromConfig() *Executor {
	rc := config.AppConfig.Runner
	return NewExecutor(time.Duration(rc.TimeoutSeconds)*time.Second, rc.SkipTLSVerify, rc.AllowLoopback)
}

// isSafeURL checks that the URL does not point the backend at itself or its
// network neighborhood. Loopback is rejected unless explicitly allowed;
// link-local always is.
func isSafeURL(rawurl string, allowLoopback bool) (bool, error) {
	parsedURL, err := url.Parse(rawurl)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return false, fmt.Errorf("URL has no hostname")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		logger.Warn("isSafeURL: Could not resolve hostname '%s': %v. Proceeding, the user may be targeting non-public DNS.", hostname, err)
		return true, nil
	}

	for _, ip := range ips {
		if ip.IsLoopback() && !allowLoopback {
			return false, fmt.Errorf("requests to loopback addresses are disallowed (set runner.allow_loopback to override)")
		}
		if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false, fmt.Errorf("requests to link-local addresses are disallowed")
		}
	}
	return true, nil
}

// Execute sends one resolved request and returns the result row. taskID and
// recordIndex may be invalid for one-off executions.
func (e *Executor) Execute(ctx context.Context, taskID sql.NullInt64, recordIndex sql.NullInt64, resolved *models.ResolvedRequest, logSource string) *models.ExecutionResult {
	startTime := time.Now()

	reqHeadersJSON, _ := json.Marshal(resolved.Headers)
	result := &models.ExecutionResult{
		TaskID:         taskID,
		RecordIndex:    recordIndex,
		Timestamp:      startTime,
		RequestMethod:  resolved.Method,
		RequestURL:     resolved.URL,
		RequestHeaders: models.NullString(string(reqHeadersJSON)),
		RequestBody:    []byte(resolved.Body),
		LogSource:      logSource,
	}

	if safe, errSafe := isSafeURL(resolved.URL, e.allowLoopback); !safe {
		logger.Error("Executor: Refusing unsafe URL %s: %v", resolved.URL, errSafe)
		result.Success = false
		result.ErrorMessage = models.NullString(errSafe.Error())
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result
	}

	httpRequest, err := http.NewRequestWithContext(ctx, resolved.Method, resolved.URL, strings.NewReader(resolved.Body))
	if err != nil {
		logger.Error("Executor: Error creating request for %s %s: %v", resolved.Method, resolved.URL, err)
		result.Success = false
		result.ErrorMessage = models.NullString("failed to create request: " + err.Error())
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result
	}
	for k, v := range resolved.Headers {
		httpRequest.Header.Set(k, v)
	}

	httpResponse, err := e.client.Do(httpRequest)
	result.DurationMs = time.Since(startTime).Milliseconds()
	if err != nil {
		logger.Error("Executor: Error executing %s %s: %v", resolved.Method, resolved.URL, err)
		result.Success = false
		result.ErrorMessage = models.NullString("failed to execute request: " + err.Error())
		return result
	}
	defer httpResponse.Body.Close()

	result.ResponseStatusCode = httpResponse.StatusCode
	result.ResponseContentType = models.NullString(httpResponse.Header.Get("Content-Type"))

	respHeadersMap := make(map[string][]string)
	for k, v := range httpResponse.Header {
		respHeadersMap[k] = v
	}
	respHeadersJSON, _ := json.Marshal(respHeadersMap)
	result.ResponseHeaders = models.NullString(string(respHeadersJSON))

	respBodyBytes, readErr := readResponseBody(httpResponse)
	if readErr != nil {
		logger.Error("Executor: Error reading response body for %s %s: %v", resolved.Method, resolved.URL, readErr)
		result.Success = false
		result.ErrorMessage = models.NullString("failed to read response body: " + readErr.Error())
		return result
	}
	result.ResponseBody = respBodyBytes
	result.ResponseBodySize = int64(len(respBodyBytes))

	// 2xx and 3xx count as success; 4xx/5xx are recorded but marked failed.
	result.Success = httpResponse.StatusCode < 400
	if !result.Success {
		result.ErrorMessage = models.NullString(fmt.Sprintf("server returned %s", httpResponse.Status))
	}

	logger.Debug("Executor: %s %s -> %d (%d bytes, %dms)", resolved.Method, resolved.URL, httpResponse.StatusCode, result.ResponseBodySize, result.DurationMs)
	return result
}

// readResponseBody drains the body, transparently decompressing gzip and
// brotli encodings.
func readResponseBody(resp *http.Response) ([]byte, error) {
	contentEncoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	switch contentEncoding {
	case "br":
		return io.ReadAll(brotli.NewReader(resp.Body))
	case "gzip":
		gzReader, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, gzErr
		}
		defer gzReader.Close()
		return io.ReadAll(gzReader)
	default:
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, resp.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}
