package config

// GetDefaultReportTemplate returns the default prompt for the written report
func GetDefaultReportTemplate() string {
	return `Analyze the topic: {{.Topic}}. The question is: "{{.Question}}". Provide a detailed report with the following structure:

1. Introduction
- Define the key concepts related to {{.Topic}}
- Explain their relevance to the question
- Introduce the case study or scenario presented in the question

2. Methodology
- Describe the relevant techniques or comparisons involved in {{.Topic}}
- Provide formulas using LaTeX notation
- Outline the steps for the appropriate analysis

3. Approach
- Solve the problem step by step with the most suitable technique
- Include sample values and key calculations where applicable
- Derive the final equation or model

4. Significance
- Explain why the approach fits this task
- Discuss advantages and limitations
- Interpret the results in the context of the problem

5. Conclusion
- Summarize the key points and practical implications

Use LaTeX notation for all mathematical formulas. Format the response in Markdown with proper headings and sections.`
}

// GetDefaultChartTemplate returns the default prompt for chart data
func GetDefaultChartTemplate() string {
	return `Based on the topic "{{.Topic}}" and the question "{{.Question}}", generate sample data for a chart that illustrates a key relationship or concept related to this topic. Provide ONLY the following JSON data structure without any additional text or explanation:
{
  "chartType": "line",
  "data": {
    "labels": ["label1", "label2", "label3", "label4", "label5"],
    "datasets": [
      {
        "label": "Y-Axis Label",
        "data": [number1, number2, number3, number4, number5],
        "borderColor": "rgb(75, 192, 192)",
        "tension": 0.1
      }
    ]
  },
  "description": "A brief description of what this chart represents"
}
The "chartType" should be either "line", "bar", or "scatter", whichever suits the data. Use realistic values relevant to the topic and question.`
}
