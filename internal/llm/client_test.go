package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     h,
	}
}

func TestChatSendsBothMessages(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		APIKey:  "secret",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if got := req.Header.Get("Authorization"); got != "Bearer secret" {
					t.Fatalf("authorization header = %q", got)
				}
				var body chatRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "Analyze 10 tickets" {
					t.Fatalf("unexpected messages: %+v", body.Messages)
				}
				return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"Answer"}}]}`)
			}),
		},
	}

	out, err := client.Chat(context.Background(), "You are a support analyst", "Analyze 10 tickets")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "Answer" {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestChatError(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return jsonResponse(200, `{"error":{"message":"bad"}}`)
			}),
		},
	}
	if _, err := client.Chat(context.Background(), "s", "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestChatEmptyChoices(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return jsonResponse(200, `{"choices":[]}`)
			}),
		},
	}
	if _, err := client.Chat(context.Background(), "s", "q"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestChatRequiresModel(t *testing.T) {
	if _, err := (&Client{BaseURL: "https://api.test"}).Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestAnthropicChat(t *testing.T) {
	client := &AnthropicClient{
		APIKey:  "key",
		Model:   "claude-test",
		BaseURL: "https://anthropic.test/",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if !strings.HasSuffix(req.URL.Path, "/v1/messages") {
					t.Fatalf("unexpected path %s", req.URL.Path)
				}
				body, _ := io.ReadAll(req.Body)
				if !strings.Contains(string(body), "claude-test") || !strings.Contains(string(body), "Analyze") {
					t.Fatalf("unexpected payload %s", body)
				}
				return jsonResponse(200, `{
					"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
					"content":[{"type":"text","text":"{\"pattern_name\":\"x\"}"}],
					"stop_reason":"end_turn",
					"usage":{"input_tokens":12,"output_tokens":5}
				}`)
			}),
		},
	}

	out, err := client.Chat(context.Background(), "system", "Analyze these tickets")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `{"pattern_name":"x"}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestAnthropicRequiresKey(t *testing.T) {
	if _, err := (&AnthropicClient{}).Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNew(t *testing.T) {
	c, err := New(Config{}, nil)
	if err != nil || c != nil {
		t.Fatalf("no provider should yield nil client, got %v %v", c, err)
	}

	c, err = New(Config{Provider: "OpenAI", BaseURL: "https://api.test", Model: "m"}, nil)
	if err != nil {
		t.Fatalf("New openai: %v", err)
	}
	if _, ok := c.(*Client); !ok {
		t.Fatalf("expected *Client, got %T", c)
	}

	c, err = New(Config{Provider: ProviderAnthropic, APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("New anthropic: %v", err)
	}
	if _, ok := c.(*AnthropicClient); !ok {
		t.Fatalf("expected *AnthropicClient, got %T", c)
	}

	if _, err := New(Config{Provider: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
