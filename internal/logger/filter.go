package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const filteredKey = "_filtered"

// FilterHook marks entries that should not be written. AsyncHook drops marked
// entries. An entry without a module or collection field is never filtered on it.
type FilterHook struct {
	allowedModules     map[string]bool
	allowedCollections map[string]bool
	allowedLogTypes    map[string]bool
}

// NewFilterHook builds the hook from the comma separated filters in cfg.
func NewFilterHook(cfg *LogConfig) *FilterHook {
	return &FilterHook{
		allowedModules:     parseFilter(cfg.FilterModules),
		allowedCollections: parseFilter(cfg.FilterCollections),
		allowedLogTypes:    parseFilter(cfg.FilterLogTypes),
	}
}

// parseFilter turns "a,b,c" into a lookup set. Empty or "*" yields nil, meaning allow all.
func parseFilter(filter string) map[string]bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == "*" {
		return nil
	}
	result := make(map[string]bool)
	for _, v := range strings.Split(filter, ",") {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "*" {
			return nil
		}
		if v != "" {
			result[v] = true
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func (h *FilterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *FilterHook) Fire(entry *logrus.Entry) error {
	if h.allowedLogTypes != nil && !h.allowedLogTypes[entry.Level.String()] {
		entry.Data[filteredKey] = true
		return nil
	}
	if !allowed(h.allowedModules, entry.Data["module"]) || !allowed(h.allowedCollections, entry.Data["collection"]) {
		entry.Data[filteredKey] = true
	}
	return nil
}

func allowed(set map[string]bool, value any) bool {
	if set == nil {
		return true
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return true
	}
	return set[strings.ToLower(s)]
}
