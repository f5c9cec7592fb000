package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
)

// DefaultMaxIterations caps model round-trips per exchange.
const DefaultMaxIterations = 5

// Fixed user-facing texts for the two terminal failure paths.
const (
	iterationCapMessage = "I apologize, but I'm having trouble completing that request. Please try breaking it down into smaller steps."
	modelErrorFormat    = "I encountered an error: %v. Please try again."
)

// Result is the outcome of one exchange: the final assistant text, the
// ordered tool-call log, and how many model round-trips were spent.
type Result struct {
	AssistantMessage string
	ToolCalls        []model.ToolCallRecord
	Iterations       int
	Failed           bool
}

// Loop drives one exchange against the model. It holds no per-conversation
// state; every call is a pure function of the history and the new message,
// which keeps the surrounding service horizontally scalable.
type Loop struct {
	provider      llm.Provider
	executor      *Executor
	registry      *Registry
	logger        *slog.Logger
	maxIterations int
}

// NewLoop creates a Loop. maxIterations <= 0 selects the default cap.
func NewLoop(provider llm.Provider, executor *Executor, registry *Registry, logger *slog.Logger, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		provider:      provider,
		executor:      executor,
		registry:      registry,
		logger:        logger,
		maxIterations: maxIterations,
	}
}

// Run executes one exchange. Every failure path yields a well-formed Result;
// nothing escapes as an error. The partial tool-call log is always carried
// into the result, including on failure.
func (l *Loop) Run(ctx context.Context, s Session, history []llm.Message, userMessage string) Result {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	catalog := l.registry.Catalog()

	var log []model.ToolCallRecord
	iterations := 0

	for iterations < l.maxIterations {
		iterations++

		completion, err := l.provider.Complete(ctx, messages, catalog)
		if err != nil {
			// No retry: a failed model call terminates the exchange.
			l.logger.Warn("model call failed", "iteration", iterations, "error", err)
			return Result{
				AssistantMessage: fmt.Sprintf(modelErrorFormat, err),
				ToolCalls:        log,
				Iterations:       iterations,
				Failed:           true,
			}
		}

		if len(completion.ToolCalls) == 0 {
			return Result{
				AssistantMessage: completion.Text,
				ToolCalls:        log,
				Iterations:       iterations,
			}
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		// Invocations run serially in emission order; the model may rely on
		// ordering-sensitive effects across calls in the same round.
		for _, call := range completion.ToolCalls {
			result := l.executor.Execute(ctx, s, call.Name, call.Arguments)

			log = append(log, model.ToolCallRecord{
				Tool:      call.Name,
				Arguments: decodeArguments(call.Arguments),
				Result:    result,
			})

			resultJSON, err := json.Marshal(result)
			if err != nil {
				resultJSON = []byte(`{"success":false,"message":"internal error encoding tool result"}`)
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    string(resultJSON),
				ToolCallID: call.ID,
			})
		}
	}

	l.logger.Warn("iteration cap exceeded", "iterations", iterations, "tool_calls", len(log))
	return Result{
		AssistantMessage: iterationCapMessage,
		ToolCalls:        log,
		Iterations:       iterations,
		Failed:           true,
	}
}

// decodeArguments best-effort parses the model's argument payload for the
// tool-call log. Unparsable payloads are preserved raw.
func decodeArguments(raw json.RawMessage) map[string]any {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"_raw": string(raw)}
	}
	return args
}
