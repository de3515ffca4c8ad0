package models

const (
	ContextSeparator = "\n---\n"
)

var (
	SystemPrompt = `You are an expert AI/ML assistant.
You must answer ONLY using the provided context.

If the context does not contain the answer:
1. Explicitly state that the documents do not mention it.
2. Explain what kind of information or document would be needed.
3. Ask one concise clarifying question.

Do NOT answer from general knowledge.
Always include citations as: [source, page].
Keep answers clear and assignment-friendly.
`

	AnswerPromptTemplate = `SYSTEM INSTRUCTIONS:
%s

QUESTION:
%s

CONTEXT (use only this):
%s
`
)

// User-facing guidance messages. These are answers, not errors: the caller
// prints them and keeps going.
const (
	MsgNoIndexedDocs = "I don't have any indexed documents yet.\n" +
		"Add files to the raw data directory and run: agentic-rag ingest"

	MsgNoRetrievalHits = "The indexed documents do not mention this.\n" +
		"To answer, I need a document that contains the phrase/topic you're asking about.\n" +
		"Which document (or source) should I use, or can you add a file that mentions it?"

	MsgEmptyContext = "The indexed documents do not contain enough relevant context to answer.\n" +
		"Please add a document that explicitly discusses this topic, or share the exact sentence/paragraph."

	MsgEmbedRateLimited = "The embedding API rate limit/quota was reached while embedding your query.\n" +
		"Please retry after the suggested delay, or reduce request frequency."

	MsgGenerateRateLimited = "The generation API rate limit/quota was reached while generating the answer.\n" +
		"Please retry after the suggested delay."
)
