package logger

import (
	"strings"
	"unicode/utf8"
)

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var outcomeNames = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"reprompt":  {},
	"cancelled": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func sanitizeEnumerations(fields map[string]any) {
	if level, ok := stringField(fields, "level"); ok {
		fields["level"] = normalizeLevel(level)
	}
	if s, ok := stringField(fields, "status"); ok && s != "" {
		fields["status"] = strings.ToLower(strings.TrimSpace(s))
	}
	if o, ok := stringField(fields, "outcome"); ok && o != "" {
		o = strings.ToLower(strings.TrimSpace(o))
		if _, valid := outcomeNames[o]; !valid {
			delete(fields, "outcome")
		} else {
			fields["outcome"] = o
		}
	}
}

// secretKeys never reach the output; their values are replaced.
var secretKeys = map[string]struct{}{
	"token":    {},
	"password": {},
	"dsn":      {},
}

// bodyKeys carry user typed message bodies; only their length is logged.
var bodyKeys = map[string]struct{}{
	"text":    {},
	"caption": {},
}

const redacted = "[redacted]"

// applySchema normalizes enum fields, hides secrets and message bodies and
// drops empty values.
func applySchema(fields map[string]any) {
	sanitizeEnumerations(fields)
	for key, val := range fields {
		leaf := key[strings.LastIndexByte(key, '.')+1:]
		if _, ok := secretKeys[leaf]; ok {
			fields[key] = redacted
			continue
		}
		if _, ok := bodyKeys[leaf]; ok {
			delete(fields, key)
			if s, ok := val.(string); ok && s != "" {
				fields[key+"_len"] = int64(utf8.RuneCountInString(s))
			}
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			delete(fields, key)
		}
	}
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"section",
	"action",
	"pending",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"target_id",
	"count",
	"sent",
	"failed",
	"skipped",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"err",
	"err_code",
	"cause",
	"attempts",
}
