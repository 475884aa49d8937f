package protocol

import "context"

// Log domain: forwards browser-side console/log activity, used by scenario
// 6 in spec.md §8 (LogEntryAdded listener).

const (
	CommandLogEnable        MethodType = "Log.enable"
	EventLogEntryAdded       MethodType = "Log.entryAdded"
)

type LogEntry struct {
	Source string `json:"source"`
	Level  string `json:"level"`
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
}

type EventEntryAddedParams struct {
	Entry LogEntry `json:"entry"`
}

func LogEnable() *logEnableAction { return &logEnableAction{} }

type logEnableAction struct{}

func (a *logEnableAction) Do(ctx context.Context, exec Executor) error {
	return exec.Execute(ctx, CommandLogEnable, nil, nil)
}
