package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gl "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// CompletionParams are the fixed generation settings applied to every request.
type CompletionParams struct {
	Model            string
	MaxTokens        int32
	Temperature      float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// LLMService is the Gemini-backed Completer. Requests go through the generativelanguage client
// directly because genai.GenerationConfig has no penalty fields.
type LLMService struct {
	client *gl.GenerativeClient
	params CompletionParams
	logger *slog.Logger
}

func NewLLMService(ctx context.Context, log *slog.Logger, apiKey string, params CompletionParams) (*LLMService, error) {
	client, err := gl.NewGenerativeRESTClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{
		client: client,
		params: params,
		logger: log.With(slog.String("service", "llm")),
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("error closing GenAI client", slog.Any("error", err))
		} else {
			s.logger.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) generationConfig() *pb.GenerationConfig {
	topP := float32(1)
	maxTokens := s.params.MaxTokens
	temp := s.params.Temperature
	freq := s.params.FrequencyPenalty
	presence := s.params.PresencePenalty
	return &pb.GenerationConfig{
		MaxOutputTokens:  &maxTokens,
		Temperature:      &temp,
		TopP:             &topP,
		FrequencyPenalty: &freq,
		PresencePenalty:  &presence,
	}
}

// request builds the GenerateContent call for turns with the fixed parameters attached.
func (s *LLMService) request(turns []Turn) (*pb.GenerateContentRequest, error) {
	system, history, last, err := geminiConversation(turns)
	if err != nil {
		return nil, err
	}

	contents := make([]*pb.Content, 0, len(history)+1)
	for _, c := range history {
		contents = append(contents, contentProto(c))
	}
	contents = append(contents, contentProto(&genai.Content{Role: "user", Parts: last}))

	req := &pb.GenerateContentRequest{
		Model:            modelName(s.params.Model),
		Contents:         contents,
		GenerationConfig: s.generationConfig(),
	}
	if system != "" {
		req.SystemInstruction = contentProto(&genai.Content{Parts: []genai.Part{genai.Text(system)}})
	}
	return req, nil
}

// Complete sends the history to Gemini and returns the first candidate's text.
func (s *LLMService) Complete(ctx context.Context, turns []Turn) (string, error) {
	req, err := s.request(turns)
	if err != nil {
		return "", err
	}
	resp, err := s.client.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
	}
	return responseText(resp)
}

func modelName(name string) string {
	if strings.ContainsRune(name, '/') {
		return name
	}
	return "models/" + name
}

func contentProto(c *genai.Content) *pb.Content {
	out := &pb.Content{Role: c.Role}
	for _, part := range c.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.Parts = append(out.Parts, &pb.Part{Data: &pb.Part_Text{Text: string(txt)}})
		}
	}
	return out
}

func responseText(resp *pb.GenerateContentResponse) (string, error) {
	candidates := resp.GetCandidates()
	if len(candidates) == 0 || candidates[0].GetContent() == nil {
		return "", errors.New("gemini response had no candidates")
	}

	var text strings.Builder
	for _, part := range candidates[0].GetContent().GetParts() {
		text.WriteString(part.GetText())
	}
	if text.Len() == 0 {
		return "", errors.New("gemini response had no text parts")
	}
	return text.String(), nil
}

// geminiConversation maps turns onto Gemini's chat model. Gemini history has to open with a user
// turn and alternate roles, so leading assistant turns move into the system instruction and
// neighbouring turns with the same role are merged. The final user turn is split off last.
func geminiConversation(turns []Turn) (system string, history []*genai.Content, last []genai.Part, err error) {
	i := 0
	var preamble []string
	for ; i < len(turns) && turns[i].Role != RoleUser; i++ {
		preamble = append(preamble, turns[i].Content)
	}
	system = strings.Join(preamble, "\n\n")

	var contents []*genai.Content
	for _, turn := range turns[i:] {
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(turn.Content))
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}

	if len(contents) == 0 || contents[len(contents)-1].Role != "user" {
		return "", nil, nil, errors.New("conversation must end with a user turn")
	}
	lastContent := contents[len(contents)-1]
	return system, contents[:len(contents)-1], lastContent.Parts, nil
}
