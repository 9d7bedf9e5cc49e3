// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// systemPrompt frames the model as a citing research assistant. The [N]
// marker format it mandates is what the citation package parses back out of
// the summary.
const systemPrompt = `You are a professional research assistant. Your role is to:

1. Search for information on topics using web search
2. Fetch and read webpage content from search results
3. Synthesize information from multiple sources
4. Provide well-cited, accurate summaries

When conducting research:
- Use web_search to find relevant sources
- Use fetch_webpage to read the full content of promising sources
- Cite your sources using [1], [2], etc. format
- Cross-reference information across multiple sources
- Present balanced viewpoints when sources disagree
- Organize findings logically

Always be thorough, accurate, and transparent about your sources.`

// depthInstructions tell the model how much ground to cover at each depth.
var depthInstructions = map[types.ResearchDepth]string{
	types.DepthQuick:         "Do a quick search and provide a brief summary from 2-3 sources.",
	types.DepthStandard:      "Search multiple sources and provide a comprehensive summary.",
	types.DepthComprehensive: "Conduct in-depth research across many sources and provide detailed analysis.",
}

var researchPromptTmpl = template.Must(template.New("research").Parse(`Research the following topic: {{.Query}}

Research depth: {{.Depth}}
{{.Instructions}}

Please:
1. Search for relevant information using web_search
2. Read the most relevant sources using fetch_webpage
3. Synthesize the information into a clear, well-organized summary
4. Cite all sources using [1], [2], etc. format
5. Provide a sources section at the end

Begin your research now.`))

// renderResearchPrompt executes the research prompt template for the query.
func renderResearchPrompt(query types.ResearchQuery) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Query        string
		Depth        types.ResearchDepth
		Instructions string
	}{
		Query:        query.Query,
		Depth:        query.Depth,
		Instructions: depthInstructions[query.Depth],
	}
	if err := researchPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering research prompt: %w", err)
	}
	return buf.String(), nil
}
