package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"vericode/internal/config"
)

// cloudAnalyzer serves analysis requests through the Gemini API.
type cloudAnalyzer struct {
	client       *genai.Client
	registry     *Registry
	defaultModel string
	timeout      time.Duration
	log          *zap.Logger
}

func newCloudAnalyzer(cfg config.LLMConfig, registry *Registry, logger *zap.Logger) (*cloudAnalyzer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, &ConfigurationError{Reason: "gemini_api_key is missing"}
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, &ConfigurationError{Reason: "create gemini client: " + err.Error()}
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = registry.Resolve("", ModeCloud).Name
	}
	return &cloudAnalyzer{
		client:       client,
		registry:     registry,
		defaultModel: defaultModel,
		timeout:      cfg.RequestTimeout(),
		log:          logger,
	}, nil
}

func (a *cloudAnalyzer) chatModel(ctx context.Context, modelName string) (model.ToolCallingChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client: a.client,
		Model:  modelName,
	})
}

// Analyze sends the instructional template with the payload interpolated
// and returns the generated text unmodified.
func (a *cloudAnalyzer) Analyze(ctx context.Context, code, modelName string) (string, error) {
	if modelName == "" {
		modelName = a.defaultModel
	}
	desc := a.registry.Resolve(modelName, ModeCloud)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	chatModel, err := a.chatModel(ctx, desc.Name)
	if err != nil {
		return "", classifyCloudError(err)
	}
	resp, err := chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: buildPrompt(code)},
	})
	if err != nil {
		infErr := classifyCloudError(err)
		a.log.Error("gemini generation failed",
			zap.String("model", desc.Name),
			zap.String("kind", string(infErr.Kind)),
			zap.Error(err))
		return "", infErr
	}
	return resp.Content, nil
}

// TestConnection performs a minimal generation against the default model.
// It never returns an error; failures are logged as the negative result.
func (a *cloudAnalyzer) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	chatModel, err := a.chatModel(ctx, a.defaultModel)
	if err != nil {
		a.log.Error("gemini connection failed", zap.Error(err))
		return false
	}
	if _, err := chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: "Test connection"},
	}); err != nil {
		infErr := classifyCloudError(err)
		a.log.Error("gemini connection failed",
			zap.String("model", a.defaultModel),
			zap.String("kind", string(infErr.Kind)),
			zap.Error(err))
		return false
	}
	a.log.Info("connected to gemini", zap.String("model", a.defaultModel))
	return true
}
