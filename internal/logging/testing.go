package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with test observation capabilities.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger for testing that records every level.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries matching message substring.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies a log at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

// AssertNotLogged verifies no log at level containing message was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertField verifies a field with key and value exists on a message.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessageSnippet(msg).All() {
		if v, ok := entry.ContextMap()[key]; ok && reflect.DeepEqual(v, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

var (
	sensitiveKeys     = []string{"password", "secret", "token", "api_key", "x-api-key", "authorization", "database_url"}
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bearer\s+\S+`),
		regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`),
	}
)

// AssertNoSecrets verifies no sensitive data leaked in logs.
// The observer bypasses the redacting encoder, so this checks what call
// sites hand to the logger.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		for _, re := range sensitivePatterns {
			if re.MatchString(entry.Message) {
				tb.Errorf("sensitive pattern in message: %q", entry.Message)
			}
		}
		for _, field := range entry.Context {
			if field.Type != zapcore.StringType {
				continue
			}
			keyLower := strings.ToLower(field.Key)
			for _, sensitive := range sensitiveKeys {
				if strings.Contains(keyLower, sensitive) &&
					field.String != "" && !strings.HasPrefix(field.String, "[REDACTED") && field.String != "[UNSET]" {
					tb.Errorf("sensitive field %q not redacted: %q", field.Key, field.String)
				}
			}
			for _, re := range sensitivePatterns {
				if re.MatchString(field.String) {
					tb.Errorf("sensitive pattern in field %q: %q", field.Key, field.String)
				}
			}
		}
	}
}
