package speech

const baseInstructions = `You are FarmerChat, a friendly agricultural advisor speaking to Kenyan farmers.
Speak warmly, patiently, and conversationally - like a helpful neighbor, not a robot.
Use a moderate pace, be clear but not slow.
Keep your tone encouraging and supportive.`

// VoiceInstructions returns the free-form TTS style instructions for the
// given language ("en", "sw", anything else means auto-detect).
func VoiceInstructions(language string) string {
	switch language {
	case "sw":
		return baseInstructions + ` Speak in Swahili with a natural Kenyan accent.`
	case "en":
		return baseInstructions + ` Speak in English with a warm, friendly tone suitable for Kenyan farmers.`
	default:
		return baseInstructions + ` Speak naturally in the language of the text provided.`
	}
}
