package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// 中文说明：
// OpenAIProvider：兼容 OpenAI / DeepSeek / Qwen 等 /chat/completions 接口。
// 重试由上层 oracle.Invoker 负责，这里关闭 SDK 自带重试。

var errEmptyChoice = errors.New("model returned no choices")

type OpenAIProvider struct {
	id          string
	model       string
	enabled     bool
	temperature float64
	maxTokens   int
	cli         oa.Client
}

type OpenAIOptions struct {
	ID          string
	BaseURL     string
	APIKey      string
	Model       string
	Headers     map[string]string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func NewOpenAIProvider(opts OpenAIOptions) *OpenAIProvider {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if base := normalizeBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	for k, v := range opts.Headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	return &OpenAIProvider{
		id:          opts.ID,
		model:       opts.Model,
		enabled:     true,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		cli:         oa.NewClient(reqOpts...),
	}
}

func (p *OpenAIProvider) ID() string    { return p.id }
func (p *OpenAIProvider) Model() string { return p.model }
func (p *OpenAIProvider) Enabled() bool { return p.enabled }

func (p *OpenAIProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	messages := make([]oa.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(payload.System) != "" {
		messages = append(messages, oa.SystemMessage(payload.System))
	}
	messages = append(messages, oa.UserMessage(payload.User))

	params := oa.ChatCompletionNewParams{
		Model:       oa.ChatModel(p.model),
		Messages:    messages,
		Temperature: oa.Float(p.temperature),
	}
	if payload.ExpectJSON {
		params.ResponseFormat = oa.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	maxTokens := payload.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = oa.Int(int64(maxTokens))
	}
	resp, err := p.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errEmptyChoice
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// normalizeBaseURL 去掉用户误填的 /chat/completions，并保证以 / 结尾。
func normalizeBaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/"
}
