package core

import (
	"fmt"
	"sort"
	"strings"

	"reqkit/database"
	"reqkit/logger"

	"github.com/BishopFox/jsluice"
)

// Finding groups what the analyzer extracted from one response body.
type Finding struct {
	URLs    []string `json:"urls,omitempty"`
	Secrets []string `json:"secrets,omitempty"`
}

// processSlice sorts a slice of strings and removes duplicates.
func processSlice(items []string) []string {
	if len(items) == 0 {
		return items
	}
	sort.Strings(items)
	j := 0
	for i := 1; i < len(items); i++ {
		if items[j] != items[i] {
			j++
			items[j] = items[i]
		}
	}
	return items[:j+1]
}

// AnalyzeResponseBody runs jsluice over a JavaScript (or JSON) body and
// returns the URLs and potential secrets it finds.
func AnalyzeResponseBody(body []byte) *Finding {
	analyzer := jsluice.NewAnalyzer(body)
	finding := &Finding{}

	urlsFound := []string{}
	for _, urlMatch := range analyzer.GetURLs() {
		if urlMatch == nil {
			continue
		}
		urlStr := strings.TrimSpace(urlMatch.URL)
		if urlStr != "" &&
			!strings.HasPrefix(urlStr, "data:") &&
			!strings.HasPrefix(urlStr, "javascript:") &&
			!strings.HasPrefix(urlStr, "mailto:") &&
			!strings.HasPrefix(urlStr, "tel:") {
			urlsFound = append(urlsFound, urlStr)
		}
	}
	finding.URLs = processSlice(urlsFound)

	secrets := []string{}
	for _, secretMatch := range analyzer.GetSecrets() {
		if secretMatch == nil {
			continue
		}
		secrets = append(secrets, fmt.Sprintf("%s (%s): %v", secretMatch.Kind, secretMatch.Severity, secretMatch.Data))
	}
	finding.Secrets = processSlice(secrets)

	return finding
}

// AnalyzeResult loads a stored execution result and analyzes its response
// body. Returns an error when the result does not exist or has no body.
func AnalyzeResult(resultID int64) (*Finding, error) {
	result, err := database.GetResultByID(resultID)
	if err != nil {
		return nil, fmt.Errorf("loading result %d: %w", resultID, err)
	}
	if result == nil {
		return nil, fmt.Errorf("result %d not found", resultID)
	}
	if len(result.ResponseBody) == 0 {
		return nil, fmt.Errorf("result %d has no response body to analyze", resultID)
	}

	logger.Info("Analyzing response body of result %d (%d bytes)", resultID, len(result.ResponseBody))
	finding := AnalyzeResponseBody(result.ResponseBody)
	if len(finding.URLs) == 0 && len(finding.Secrets) == 0 {
		logger.Info("No interesting items found in result %d", resultID)
	}
	return finding, nil
}
