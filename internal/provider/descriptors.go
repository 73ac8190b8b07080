package provider

// DefaultDescriptors returns the built-in capability/pricing table,
// grounded on original_source/lib/ai_client.py's per-model pricing
// constants. Read-only at runtime per §3's invariant on the descriptor
// table.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Platform: "claude", Model: "claude-3-opus", Kind: EndpointChat, MaxContextTokens: 200000, InputPricePer1K: 0.015, OutputPricePer1K: 0.075},
		{Platform: "claude", Model: "claude-3-sonnet", Kind: EndpointChat, MaxContextTokens: 200000, InputPricePer1K: 0.003, OutputPricePer1K: 0.015},
		{Platform: "claude", Model: "claude-3-haiku", Kind: EndpointChat, MaxContextTokens: 200000, InputPricePer1K: 0.00025, OutputPricePer1K: 0.00125},
		{Platform: "openai", Model: "gpt-4", Kind: EndpointChat, MaxContextTokens: 8192, InputPricePer1K: 0.03, OutputPricePer1K: 0.06},
		{Platform: "openai", Model: "gpt-4-turbo", Kind: EndpointChat, MaxContextTokens: 128000, InputPricePer1K: 0.01, OutputPricePer1K: 0.03},
		{Platform: "openai", Model: "gpt-3.5-turbo", Kind: EndpointChat, MaxContextTokens: 16385, InputPricePer1K: 0.0005, OutputPricePer1K: 0.0015},
		{Platform: "gemini", Model: "gemini-1.5-pro", Kind: EndpointChat, MaxContextTokens: 1000000, InputPricePer1K: 0.0035, OutputPricePer1K: 0.0105},
		{Platform: "xai", Model: "grok-2", Kind: EndpointChat, MaxContextTokens: 131072, InputPricePer1K: 0.002, OutputPricePer1K: 0.01},
		{Platform: "openrouter", Model: "auto", Kind: EndpointChat, MaxContextTokens: 128000, InputPricePer1K: 0.001, OutputPricePer1K: 0.002},
	}
}
