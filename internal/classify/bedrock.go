package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// BedrockConverseAPI is the subset of the Bedrock client used for
// classification.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClassifier resolves reply intents with Claude Haiku via the Bedrock
// Converse API. Malformed model output degrades to a zero-confidence
// question, never to an error: the dispatch path treats classification as
// best-effort.
type BedrockClassifier struct {
	client   BedrockConverseAPI
	modelID  string
	fallback Classifier
	logger   *logging.Logger
}

// NewBedrockClassifier creates a classifier backed by the given model.
// fallback, when non-nil, handles calls that fail at the transport level.
func NewBedrockClassifier(client BedrockConverseAPI, modelID string, fallback Classifier, logger *logging.Logger) *BedrockClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BedrockClassifier{client: client, modelID: modelID, fallback: fallback, logger: logger}
}

// Classify sends the reply text to the model and parses its JSON verdict.
func (c *BedrockClassifier) Classify(ctx context.Context, text string) (Result, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: intentSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: intentPrompt(text)},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(128),
			Temperature: aws.Float32(0.0),
		},
	}

	resp, err := c.client.Converse(ctx, input)
	if err != nil {
		if c.fallback != nil {
			c.logger.Warn("classify: bedrock unavailable, using fallback", "error", err)
			return c.fallback.Classify(ctx, text)
		}
		return Result{}, fmt.Errorf("classify: bedrock converse: %w", err)
	}

	return parseResult(extractResponseText(resp)), nil
}

func extractResponseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ""
	}
	return textBlock.Value
}

// parseResult finds the JSON object in the model output, tolerating markdown
// fences around it.
func parseResult(text string) Result {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return Result{Intent: IntentQuestion}
	}

	var r Result
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return Result{Intent: IntentQuestion}
	}
	if !r.Intent.Valid() {
		return Result{Intent: IntentQuestion}
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return r
}

const intentSystemPrompt = `You classify short WhatsApp replies from patients of a medical clinic responding to appointment reminders. The replies are usually in Brazilian Portuguese. Return ONLY a JSON object, no prose.`

func intentPrompt(text string) string {
	return fmt.Sprintf(`Classify this patient reply to an appointment reminder. Return ONLY:

{"intent": "confirm|cancel|reschedule|question", "confidence": 0.0-1.0}

- "confirm": the patient will attend (sim, confirmo, ok, estarei lá)
- "cancel": the patient will not attend and does not want a new time
- "reschedule": the patient wants a different date or time
- "question": anything else, including questions about address, price, or preparation

Reply: %q`, text)
}
