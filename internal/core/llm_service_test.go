package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCarriesCompletionParams(t *testing.T) {
	svc := &LLMService{params: CompletionParams{
		Model:            "gemini-1.5-flash",
		MaxTokens:        256,
		Temperature:      0.7,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.25,
	}}

	req, err := svc.request([]Turn{
		{Role: RoleAssistant, Content: "seed"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how are you?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "models/gemini-1.5-flash", req.GetModel())
	cfg := req.GetGenerationConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, int32(256), cfg.GetMaxOutputTokens())
	assert.Equal(t, float32(0.7), cfg.GetTemperature())
	assert.Equal(t, float32(1), cfg.GetTopP())
	require.NotNil(t, cfg.FrequencyPenalty)
	assert.Equal(t, float32(0.5), cfg.GetFrequencyPenalty())
	require.NotNil(t, cfg.PresencePenalty)
	assert.Equal(t, float32(0.25), cfg.GetPresencePenalty())
	assert.Nil(t, cfg.TopK)
	assert.Nil(t, cfg.CandidateCount)

	require.NotNil(t, req.GetSystemInstruction())
	assert.Equal(t, "seed", req.GetSystemInstruction().GetParts()[0].GetText())

	contents := req.GetContents()
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].GetRole())
	assert.Equal(t, "model", contents[1].GetRole())
	assert.Equal(t, "user", contents[2].GetRole())
	assert.Equal(t, "how are you?", contents[2].GetParts()[0].GetText())
}

func TestRequestZeroPenaltiesStillSent(t *testing.T) {
	svc := &LLMService{params: CompletionParams{Model: "models/custom", MaxTokens: 10}}

	req, err := svc.request([]Turn{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "models/custom", req.GetModel())
	assert.Nil(t, req.SystemInstruction)
	require.NotNil(t, req.GetGenerationConfig().FrequencyPenalty)
	require.NotNil(t, req.GetGenerationConfig().PresencePenalty)
	assert.Zero(t, req.GetGenerationConfig().GetFrequencyPenalty())
}

func TestRequestRejectsTrailingAssistantTurn(t *testing.T) {
	svc := &LLMService{params: CompletionParams{Model: "gemini-1.5-flash"}}

	_, err := svc.request([]Turn{{Role: RoleAssistant, Content: "seed"}})
	assert.Error(t, err)
}

func TestNewLLMServiceKeepsParams(t *testing.T) {
	params := CompletionParams{Model: "gemini-1.5-flash", MaxTokens: 64, Temperature: 1, FrequencyPenalty: 0.1, PresencePenalty: 0.2}
	svc, err := NewLLMService(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), "x", params)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, params, svc.params)
}

func TestGeminiConversationMovesSeedIntoSystem(t *testing.T) {
	system, history, last, err := geminiConversation([]Turn{
		{Role: RoleAssistant, Content: "I'm Eliza, a psychotherapist bot. How can I help you?"},
		{Role: RoleUser, Content: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "I'm Eliza, a psychotherapist bot. How can I help you?", system)
	assert.Empty(t, history)
	assert.Equal(t, []genai.Part{genai.Text("hello")}, last)
}

func TestGeminiConversationAlternatesRoles(t *testing.T) {
	system, history, last, err := geminiConversation([]Turn{
		{Role: RoleAssistant, Content: "seed"},
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
		{Role: RoleAssistant, Content: "three"},
		{Role: RoleUser, Content: "four"},
		{Role: RoleUser, Content: "five"},
	})
	require.NoError(t, err)

	assert.Equal(t, "seed", system)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("two"), genai.Text("three")}, history[1].Parts)
	assert.Equal(t, []genai.Part{genai.Text("four"), genai.Text("five")}, last)
}

func TestGeminiConversationRequiresTrailingUserTurn(t *testing.T) {
	_, _, _, err := geminiConversation(nil)
	assert.Error(t, err)

	_, _, _, err = geminiConversation([]Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	_, err := responseText(nil)
	assert.Error(t, err)

	_, err = responseText(&pb.GenerateContentResponse{})
	assert.Error(t, err)

	text, err := responseText(&pb.GenerateContentResponse{
		Candidates: []*pb.Candidate{{
			Content: &pb.Content{Parts: []*pb.Part{
				{Data: &pb.Part_Text{Text: "Hello, "}},
				{Data: &pb.Part_Text{Text: "friend."}},
			}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, friend.", text)
}
