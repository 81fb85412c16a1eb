package analysis

import "strings"

const promptTemplate = `Analyze the following code snippet and provide its time and space complexity.
Additionally, provide a detailed, professional explanation for your analysis.
Respond with only a JSON object. Do not include any other text, explanations, or code outside the JSON object.

JSON object format:
- "time_complexity": string
- "space_complexity": string
- "explanation": string

Code:
{{code}}
`

// BuildPrompt embeds code verbatim into the fixed analysis prompt.
func BuildPrompt(code string) string {
	return strings.Replace(promptTemplate, "{{code}}", code, 1)
}
