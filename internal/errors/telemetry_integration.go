// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// hasActiveReporting tracks whether any telemetry reporter is attached.
// Build() consults it to skip component/category detection entirely when
// nothing would consume the result.
var hasActiveReporting atomic.Bool

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
	}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	enhancedMessage := fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error())
	scrubbedMessage := scrubMessageForPrivacy(enhancedMessage)
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			scrubbedValue := value
			if strValue, ok := value.(string); ok {
				scrubbedValue = scrubMessageForPrivacy(strValue)
			}
			scope.SetContext(key, map[string]any{"value": scrubbedValue})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)

		// Custom fingerprint for better grouping in the Sentry UI
		scope.SetFingerprint([]string{errorTitle, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle creates a meaningful error title for Sentry based on enhanced error context
func generateErrorTitle(ee *EnhancedError) string {
	operation, hasOperation := ee.GetContext()["operation"].(string)

	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if hasOperation && operation != "" {
		if operationTitle := formatOperationForTitle(operation); operationTitle != "" {
			titleParts = append(titleParts, operationTitle)
		}
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(titleParts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryImageDecode:
		return "Image Decode Error"
	case CategoryInference:
		return "Inference Error"
	case CategoryExtraction:
		return "Detection Extraction Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryModelInit:
		return "Model Initialization Error"
	case CategoryModelLoad:
		return "Model Loading Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategorySystem:
		return "System Error"
	case CategoryLimit:
		return "Capacity Limit"
	default:
		return string(category)
	}
}

// formatOperationForTitle converts operation context to human-readable format
func formatOperationForTitle(operation string) string {
	formatted := strings.ReplaceAll(operation, "_", " ")
	words := strings.Fields(formatted)
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

// titleCase capitalizes the first letter of a string (replacement for deprecated strings.Title)
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryModelInit, CategoryModelLoad:
		return sentry.LevelError // model unavailable means the gateway cannot serve
	case CategoryValidation:
		return sentry.LevelWarning // client input, not a service fault
	case CategoryDatabase:
		return sentry.LevelError
	case CategoryInference, CategoryExtraction:
		return sentry.LevelError
	case CategoryNetwork, CategoryMQTTConnection, CategoryMQTTPublish:
		return sentry.LevelWarning // often transient
	case CategoryFileIO:
		return sentry.LevelWarning
	case CategoryHTTP, CategoryLimit:
		return sentry.LevelWarning
	case CategoryConfiguration, CategorySystem:
		return sentry.LevelError
	default:
		return sentry.LevelError
	}
}

// Global telemetry reporter (can be nil if telemetry is disabled)
var (
	globalTelemetryReporter TelemetryReporter
	reporterMutex           sync.RWMutex
)

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMutex.Lock()
	defer reporterMutex.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	reporterMutex.RLock()
	defer reporterMutex.RUnlock()
	return globalTelemetryReporter
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporterMutex.RLock()
	reporter := globalTelemetryReporter
	reporterMutex.RUnlock()

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// PrivacyScrubber is a function type for privacy scrubbing
type PrivacyScrubber func(string) string

// Global privacy scrubber function (set by telemetry package)
var globalPrivacyScrubber PrivacyScrubber

// SetPrivacyScrubber sets the global privacy scrubbing function
func SetPrivacyScrubber(scrubber PrivacyScrubber) {
	globalPrivacyScrubber = scrubber
}

// scrubMessageForPrivacy applies privacy protection to error messages
func scrubMessageForPrivacy(message string) string {
	if globalPrivacyScrubber != nil {
		return globalPrivacyScrubber(message)
	}
	return basicURLScrub(message)
}

// Pre-compiled patterns for basicURLScrub.
var (
	urlQueryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamRegex = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	apiKeyRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`key[=:][0-9a-fA-F]{8,}`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
	idRegexes = []*regexp.Regexp{
		regexp.MustCompile(`station[_-]?id[=:]\S+`),
		regexp.MustCompile(`user[_-]?id[=:]\S+`),
		regexp.MustCompile(`device[_-]?id[=:]\S+`),
		regexp.MustCompile(`client[_-]?id[=:]\S+`),
	}
)

// basicURLScrub provides basic URL anonymization as fallback
func basicURLScrub(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = queryParamRegex.ReplaceAllString(scrubbed, "?[REDACTED]")

	for _, regex := range apiKeyRegexes {
		scrubbed = regex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	}
	for _, regex := range idRegexes {
		scrubbed = regex.ReplaceAllString(scrubbed, "[ID_REDACTED]")
	}

	return scrubbed
}
