package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// LogEntry is one parsed service log line for the logs endpoint.
type LogEntry struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// LogsHandler serves recent service logs out of the arbor memory writer.
type LogsHandler struct {
	logger arbor.ILogger
}

// NewLogsHandler creates a new LogsHandler
func NewLogsHandler(logger arbor.ILogger) *LogsHandler {
	return &LogsHandler{logger: logger}
}

// GetRecentLogsHandler returns recent service logs as JSON
func (h *LogsHandler) GetRecentLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	logs := []LogEntry{}

	memWriter := arbor.GetRegisteredMemoryWriter(arbor.WRITER_MEMORY)
	if memWriter != nil {
		entries, err := memWriter.GetEntriesWithLimit(100)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to get log entries")
			http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
			return
		}

		// Map keys are timestamps; sorting gives chronological order.
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			logLine := entries[key]
			// Skip noise from the transport layer itself.
			if strings.Contains(logLine, "WebSocket client connected") ||
				strings.Contains(logLine, "WebSocket client disconnected") ||
				strings.Contains(logLine, "HTTP request") ||
				strings.Contains(logLine, "HTTP response") {
				continue
			}

			parts := strings.SplitN(logLine, "|", 3)
			if len(parts) != 3 {
				continue
			}

			levelStr := strings.TrimSpace(parts[0])
			dateTime := strings.TrimSpace(parts[1])
			message := strings.TrimSpace(parts[2])

			timeParts := strings.Fields(dateTime)
			var timestamp string
			if len(timeParts) >= 3 {
				timestamp = timeParts[len(timeParts)-1]
			} else {
				timestamp = time.Now().Format("15:04:05")
			}

			level := "INF"
			switch levelStr {
			case "ERR", "ERROR", "FATAL", "PANIC":
				level = "ERR"
			case "WRN", "WARN":
				level = "WRN"
			case "DBG", "DEBUG":
				level = "DBG"
			}

			logs = append(logs, LogEntry{
				Index:     len(logs),
				Timestamp: timestamp,
				Level:     level,
				Message:   message,
			})
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}
