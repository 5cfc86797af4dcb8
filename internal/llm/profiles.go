package llm

// WireFormat selects the request/response shape a provider speaks.
type WireFormat string

const (
	// FormatStandardChat is the widely copied chat-completions shape:
	// messages at top level, streaming deltas under choices[].delta.
	FormatStandardChat WireFormat = "standard_chat"
	// FormatVendorEnvelope wraps messages under input{} with generation
	// parameters in a sibling object, used by the dashscope endpoints.
	FormatVendorEnvelope WireFormat = "vendor_envelope"
)

// Profile describes one callable model.
type Profile struct {
	ID          string
	Provider    string
	Model       string
	Endpoint    string
	KeyEnvVars  []string
	Format      WireFormat
	MaxTokens   int
	Temperature float64
}

const dashscopeEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// builtinProfiles is the closed set of supported models. Availability and
// ordering are runtime config; the profiles themselves are not.
var builtinProfiles = []Profile{
	{
		ID:          "grok3-mini",
		Provider:    "x.ai",
		Model:       "grok-3-mini",
		Endpoint:    "https://api.x.ai/v1/chat/completions",
		KeyEnvVars:  []string{"XAI_API_KEY"},
		Format:      FormatStandardChat,
		MaxTokens:   2000,
		Temperature: 0.7,
	},
	{
		ID:          "groq-llama3",
		Provider:    "groq",
		Model:       "llama3-70b-8192",
		Endpoint:    "https://api.groq.com/openai/v1/chat/completions",
		KeyEnvVars:  []string{"GROQ_API_KEY"},
		Format:      FormatStandardChat,
		MaxTokens:   2000,
		Temperature: 0.7,
	},
	{
		ID:          "qwen-turbo",
		Provider:    "dashscope",
		Model:       "qwen-turbo",
		Endpoint:    dashscopeEndpoint,
		KeyEnvVars:  []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
		Format:      FormatVendorEnvelope,
		MaxTokens:   2000,
		Temperature: 0.7,
	},
	{
		ID:          "qwen-max",
		Provider:    "dashscope",
		Model:       "qwen-max",
		Endpoint:    dashscopeEndpoint,
		KeyEnvVars:  []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
		Format:      FormatVendorEnvelope,
		MaxTokens:   2000,
		Temperature: 0.7,
	},
	{
		ID:          "openai-gpt4",
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		KeyEnvVars:  []string{"OPENAI_API_KEY"},
		Format:      FormatStandardChat,
		MaxTokens:   2000,
		Temperature: 0.7,
	},
}

// defaultPriority orders models for automatic selection.
var defaultPriority = []string{"grok3-mini", "groq-llama3", "qwen-turbo", "openai-gpt4", "qwen-max"}

// Profiles returns the builtin registry keyed by profile ID.
func Profiles() map[string]Profile {
	m := make(map[string]Profile, len(builtinProfiles))
	for _, p := range builtinProfiles {
		m[p.ID] = p
	}
	return m
}
