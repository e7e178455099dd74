// Package calllog summarizes a finished call's transcript and appends the
// call record. It runs at call teardown and must never take the session down
// with it: every failure degrades to logging something rather than nothing.
package calllog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zyptics/voice-receptionist/internal/contact"
	"github.com/zyptics/voice-receptionist/internal/llm"
	"github.com/zyptics/voice-receptionist/internal/records"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

const summaryPrompt = `Analyze this phone call transcript and provide:
1. A concise summary of the conversation (2-3 sentences).
2. Any action items or follow-ups needed.

Format your response exactly as:
Summary: <summary>
Action Items: <action items, or "None">

Transcript:
%s`

// unknownField fills contact columns the caller never provided.
const unknownField = "N/A"

// Logger summarizes transcripts and writes call records.
type Logger struct {
	llm     llm.Client
	store   records.Store
	timeout time.Duration
	logger  *logging.Logger
}

// New creates a call logger. timeout bounds the summarization request; zero
// selects a 20-second default. llmClient may be nil, in which case the raw
// transcript is logged without a summary.
func New(llmClient llm.Client, store records.Store, timeout time.Duration, logger *logging.Logger) *Logger {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Logger{
		llm:     llmClient,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// SummarizeAndLog summarizes the transcript and appends a call record. An
// empty transcript is a no-op. Summarization failures fall back to logging
// the raw transcript so the record is never lost.
func (l *Logger) SummarizeAndLog(ctx context.Context, callSID, transcript string, duration time.Duration, caller contact.Contact) error {
	if strings.TrimSpace(transcript) == "" {
		l.logger.Info("skipping call record for empty transcript", "call_sid", callSID)
		return nil
	}
	if l.store == nil {
		return fmt.Errorf("calllog: no record store configured")
	}

	summary, actionItems := l.summarize(ctx, callSID, transcript)

	rec := records.CallRecord{
		EndedAt:      time.Now().UTC(),
		CallSID:      callSID,
		Duration:     duration,
		ContactName:  orUnknown(caller.Name),
		ContactPhone: orUnknown(caller.Phone),
		ContactEmail: orUnknown(caller.Email),
		Summary:      summary,
		ActionItems:  actionItems,
		Transcript:   transcript,
	}
	if err := l.store.AppendCallRecord(ctx, rec); err != nil {
		l.logger.Error("call record append failed", "error", err, "call_sid", callSID)
		return fmt.Errorf("calllog: append call record: %w", err)
	}
	l.logger.Info("call record written", "call_sid", callSID, "duration_s", int(duration.Seconds()))
	return nil
}

// summarize asks the LLM for a two-part summary and parses it. On any
// failure the raw transcript stands in for the summary.
func (l *Logger) summarize(ctx context.Context, callSID, transcript string) (summary, actionItems string) {
	if l.llm == nil {
		return transcript, unknownField
	}

	llmCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.llm.Complete(llmCtx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(summaryPrompt, transcript)},
		},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		l.logger.Warn("transcript summarization failed", "error", err, "call_sid", callSID)
		return "Summarization failed. Raw transcript: " + transcript, unknownField
	}
	return parseSummary(resp.Text, transcript)
}

// parseSummary splits the model's response into its two labeled parts. If
// the labels are missing the whole response is kept as the summary.
func parseSummary(text, transcript string) (summary, actionItems string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return transcript, unknownField
	}

	const (
		summaryLabel = "Summary:"
		actionsLabel = "Action Items:"
	)
	si := strings.Index(trimmed, summaryLabel)
	ai := strings.Index(trimmed, actionsLabel)
	if si < 0 || ai < 0 || ai < si {
		return trimmed, unknownField
	}

	summary = strings.TrimSpace(trimmed[si+len(summaryLabel) : ai])
	actionItems = strings.TrimSpace(trimmed[ai+len(actionsLabel):])
	if summary == "" {
		summary = transcript
	}
	if actionItems == "" {
		actionItems = unknownField
	}
	return summary, actionItems
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return unknownField
	}
	return v
}
