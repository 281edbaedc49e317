package gemini

// TonePromptTemplate asks for a single-word tone classification.
const TonePromptTemplate = `Analyze the emotional tone of the following message and classify it as "Calm", "Anxious", or "Distressed". Respond with only one word.

Message: %s`

// ResponsePromptTemplate generates a short empathetic reply.
const ResponsePromptTemplate = `You are a compassionate assistant helping people in vulnerable situations find immediate support.
The person's emotional tone is %s.%s
Respond empathetically and helpfully to: "%s"
Keep the response under 100 words and be supportive.`

// LegalPromptTemplate provides brief legal guidance.
const LegalPromptTemplate = `As a legal assistant helping people experiencing homelessness, provide brief guidance on: %s. Keep the response under 150 words.`

// MemoryPromptTemplate extracts key points from a conversation.
const MemoryPromptTemplate = `Extract 2-3 key points from this conversation that would help personalize future assistance (needs, constraints, preferences). Return one point per line with no bullets or numbering.

Conversation:
%s`

// Deterministic fallbacks used whenever the AI service is unconfigured
// or fails. Lifecycle transitions must complete with these instead of
// surfacing the failure.
const (
	FallbackResponse = "I understand you need help. Let me find resources for you."
	FallbackLegal    = "For legal assistance, please contact Coalition on Homelessness: 415-346-3740"
)

// FallbackMemory is the extraction fallback for a conversation the
// service could not summarize.
var FallbackMemory = []string{"Needs assistance"}
