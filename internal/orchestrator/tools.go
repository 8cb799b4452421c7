package orchestrator

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// toolDefinitions returns the OpenAI tool definitions for the closed set of
// backend actions the model may request.
func toolDefinitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        "suggest_assessment",
				Description: openai.String("Find the best-matching business health assessment for what the user wants to understand or improve"),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The user's need in their own words, e.g. 'quero simular meu lucro'",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        "start_assessment",
				Description: openai.String("Start a named assessment for the user after they agreed to take it. Restarting the one already in flight resumes at the current question"),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"assessment": map[string]interface{}{
							"type":        "string",
							"description": "Catalog name of the assessment to start, e.g. 'simulateProfit'",
						},
					},
					"required": []string{"assessment"},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        "process_assessment_answer",
				Description: openai.String("Record the user's answer to the current question of their in-flight assessment and advance it"),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"assessment": map[string]interface{}{
							"type":        "string",
							"description": "Catalog name of the in-flight assessment",
						},
						"answer": map[string]interface{}{
							"type":        "string",
							"description": "The user's raw answer text",
						},
						"step_key": map[string]interface{}{
							"type":        "string",
							"description": "Key of the step being answered; omit to answer the current step",
						},
					},
					"required": []string{"assessment", "answer"},
				},
			},
		},
	}
}
