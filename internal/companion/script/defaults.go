package script

// Default returns the built-in playbook used when no playbook file is
// configured. Operators are expected to override the wording (and the
// keyword lists, which are language-specific) with their own file.
func Default() *Playbook {
	return &Playbook{
		TriggerWords: []string{
			"lonely", "sad", "scared", "doesn't love", "nobody", "abandoned",
		},
		EscalationWords: []string{
			"lonely", "sad", "scared", "doesn't love",
		},
		AnxietyWords: []string{
			"anxious", "anxiety", "panic", "panicking", "frightened", "scared",
		},
		Scripts: Scripts{
			Greeting: "Hi! I'm here to support you. " +
				"You can write to me about anything and I will listen.\n\n" +
				"Use /help to see everything I can do.",
			Help: "Available commands:\n\n" +
				"/start — start talking to me\n" +
				"/help — show this help\n" +
				"/now — quick reactions to how you feel right now\n" +
				"/mood — a quick mood check-in\n" +
				"/emergency — crisis support contacts\n" +
				"/clear — forget our conversation history\n\n" +
				"Or just tell me what's on your mind.\n\n" +
				"Remember: you are loved ❤️",
			Grounding: "Let's come back into the body. It takes only a minute, " +
				"and it helps you ground.\n\n" +
				"Name:\n" +
				"5 things you can see around you\n" +
				"4 things you can feel on your skin\n" +
				"3 sounds you can hear\n" +
				"2 smells you notice\n" +
				"1 taste in your mouth\n\n" +
				"Go slowly, keep breathing. You are here, you are safe.",
			Empathy: "I can see this is hard right now. Remember that you are loved ❤️\n\n" +
				"Want to talk about it a little more?",
			DependencyWarning: "I'm glad you trust me. But your real anchor is the " +
				"people around you. Maybe reach out to someone close today? " +
				"Sometimes saying things out loud changes everything.",
			Boundary: "A reminder: I am digital support, not a replacement for a " +
				"therapist. If things get heavy — long sleepless stretches, thoughts " +
				"of death — please reach out to a professional. You deserve living help.",
			Affirmation:          "Remember that you are loved ❤️",
			AffirmationEscalated: "I can see today has been rough. But remember — you are loved ❤️",
			Fallback: "Sorry, I'm having technical trouble right now. " +
				"Please try writing to me a bit later.\n\n" +
				"If you need urgent support, use /emergency.\n\n" +
				"Remember: you are loved ❤️",
			Emergency: "CRISIS SUPPORT CONTACTS\n\n" +
				"Helpline (24/7): 8-800-2000-122\n" +
				"Emergency psychological help: 8-495-989-50-50\n" +
				"Online support chat: https://telefon-doveria.ru/\n\n" +
				"If you are having thoughts of suicide, please contact a " +
				"specialist immediately. You are not alone, and help is " +
				"available around the clock.\n\n" +
				"Remember: you are loved, and there are people ready to help ❤️",
			Cleared:      "Done — our conversation history is forgotten. I'm still here.",
			Unauthorized: "Sorry, you don't have access to this companion.",
			MoodPrompt:   "How are you feeling right now?",
			Mood: map[string]string{
				"good": "Wonderful! I'm glad you're feeling good. If you want to " +
					"share anything, I'm always here to listen ❤️",
				"okay": "I hear you. Sometimes okay is already good. If you want " +
					"to talk something through, I'm here.",
				"bad": "I'm sorry you're feeling bad. Shall we talk about it? " +
					"Tell me what's going on. And remember — you are loved ❤️",
			},
			NowPrompt: "What are you feeling right now?",
			Now: map[string]string{
				"anxious": "Let's come back into the body. It takes only a minute, " +
					"and it helps you ground.\n\n" +
					"Name:\n" +
					"5 things you can see around you\n" +
					"4 things you can feel on your skin\n" +
					"3 sounds you can hear\n" +
					"2 smells you notice\n" +
					"1 taste in your mouth\n\n" +
					"Go slowly, keep breathing. You are here, you are safe.",
				"lonely": "I can see you're feeling lonely. Remember — you are loved ❤️\n\n" +
					"Maybe write to someone close right now? Sometimes saying " +
					"things out loud changes everything.",
				"angry": "Anger is a normal emotion. Let's work out what caused it.\n\n" +
					"What do the facts say? What does the emotion say?\n\n" +
					"Try describing the situation without judgments — just facts. " +
					"It helps separate reality from the emotional reaction.",
				"love": "Remember — you are loved ❤️\n\n" +
					"When you doubt it, recall the moments you felt that love. " +
					"They are real, they happened. Fear can cloud memory, but " +
					"the facts remain.",
			},
		},
	}
}
