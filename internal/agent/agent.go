// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent runs the research loop: it prompts a chat model, executes
// the tool calls the model makes, and assembles the final summary with its
// bibliography.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-assistant/internal/citation"
	"github.com/pdiddy/research-assistant/internal/tools"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const defaultMaxIterations = 10

// incompleteSummary stands in for the summary when the model never produced
// a final answer within the iteration budget.
const incompleteSummary = "Research incomplete due to iteration limit."

// ChatClient is the slice of the OpenAI client the agent uses.
// *openai.Client satisfies it; tests substitute a scripted fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds an OpenAI client from the agent configuration. BaseURL
// overrides the default endpoint for proxies and compatible servers.
func NewClient(cfg types.AgentConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Agent drives one research conversation. Construct a fresh Agent, registry,
// and citation manager per run; the chat client can be shared across runs.
type Agent struct {
	client    ChatClient
	cfg       types.AgentConfig
	registry  *tools.Registry
	citations *citation.Manager
	warn      io.Writer

	now func() time.Time
}

// New returns an Agent over the given tools and citation manager. Progress
// warnings go to warn; pass nil to discard them.
func New(client ChatClient, cfg types.AgentConfig, registry *tools.Registry, citations *citation.Manager, warn io.Writer) *Agent {
	if warn == nil {
		warn = io.Discard
	}
	return &Agent{
		client:    client,
		cfg:       cfg,
		registry:  registry,
		citations: citations,
		warn:      warn,
		now:       time.Now,
	}
}

// Research runs the agent loop for query and returns the assembled result.
// The loop ends when the model answers without tool calls or the iteration
// budget runs out; either way the bibliography of every source collected so
// far is appended to the summary.
func (a *Agent) Research(ctx context.Context, query types.ResearchQuery) (*types.ResearchResult, error) {
	query.Normalize()
	if strings.TrimSpace(query.Query) == "" {
		return nil, fmt.Errorf("research query is empty")
	}

	prompt, err := renderResearchPrompt(query)
	if err != nil {
		return nil, err
	}

	started := a.now()
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	chatTools := a.chatTools()

	maxIterations := a.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	var summary string
	iterations := 0
	done := false
	for iterations < maxIterations {
		iterations++

		resp, err := a.complete(ctx, messages, chatTools)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			summary = msg.Content
			done = true
			break
		}

		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.executeToolCall(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	if !done {
		fmt.Fprintf(a.warn, "warning: stopping after %d iterations without a final answer\n", maxIterations)
		summary = incompleteSummary
	}

	a.reportDanglingMarkers(summary)

	if bib := a.citations.Markdown(); bib != "" {
		summary = summary + "\n\n" + bib
	}

	return &types.ResearchResult{
		Query:      query.Query,
		Depth:      query.Depth,
		Summary:    summary,
		Sources:    a.citations.Sources(),
		Iterations: iterations,
		Duration:   a.now().Sub(started),
		Timestamp:  started,
	}, nil
}

// chatTools converts the registered tool definitions into the OpenAI tool
// format.
func (a *Agent) chatTools() []openai.Tool {
	defs := a.registry.Definitions()
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// complete calls the chat API with exponential backoff between attempts.
func (a *Agent) complete(ctx context.Context, messages []openai.ChatCompletionMessage, chatTools []openai.Tool) (openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		Tools:       chatTools,
		Temperature: a.cfg.Temperature,
	}

	maxRetries := a.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		fmt.Fprintf(a.warn, "warning: chat completion attempt %d failed: %v\n", attempt+1, err)
	}
	return openai.ChatCompletionResponse{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// executeToolCall runs one tool call and returns the content for the tool
// role message. Failures are reported to the model as error envelopes so
// the conversation can continue.
func (a *Agent) executeToolCall(ctx context.Context, call openai.ToolCall) string {
	name := call.Function.Name
	tool, ok := a.registry.Get(name)
	if !ok {
		fmt.Fprintf(a.warn, "warning: model requested unknown tool %q\n", name)
		return errorContent("Unknown tool: " + name)
	}

	result, err := tool.Execute(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		fmt.Fprintf(a.warn, "warning: tool %s failed: %v\n", name, err)
		return errorContent(err.Error())
	}
	return result
}

func errorContent(msg string) string {
	b, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal error"}`
	}
	return string(b)
}

// reportDanglingMarkers warns when the summary cites an index that no
// collected source carries.
func (a *Agent) reportDanglingMarkers(summary string) {
	for _, idx := range citation.Markers(summary) {
		if _, err := a.citations.Get(idx); err != nil {
			fmt.Fprintf(a.warn, "warning: summary cites [%d] but no such source was collected\n", idx)
		}
	}
}
