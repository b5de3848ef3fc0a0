// internal/services/question_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/litelis/FrameForge/internal/models"
	"github.com/litelis/FrameForge/internal/utils"
)

// catalogEntry pairs a topic key with its question template and the prompt
// keywords that make the question unnecessary.
type catalogEntry struct {
	Topic    string
	Keywords []string
	Question models.Question
}

// questionCatalog is the static clarifying-question catalog. Order matters
// only for readability; generated lists are re-sorted deterministically.
var questionCatalog = []catalogEntry{
	{
		Topic:    "format",
		Keywords: []string{"16:9", "9:16", "1:1", "landscape", "portrait", "square"},
		Question: models.Question{
			ID:       "video_format",
			Category: models.CategoryFormat,
			Question: "What video format do you need?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"16:9 (Landscape - YouTube, Film, TV)",
				"9:16 (Portrait - TikTok, Instagram Reels, Stories)",
				"1:1 (Square - Instagram Feed, Facebook)",
			},
			Required: true,
			HelpText: "This determines the aspect ratio and framing of your video",
		},
	},
	{
		Topic:    "platform",
		Keywords: []string{"youtube", "tiktok", "instagram", "facebook", "film", "cinema", "tv"},
		Question: models.Question{
			ID:       "target_platform",
			Category: models.CategoryPlatform,
			Question: "Which platform is this video for?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"YouTube (long-form, 16:9)",
				"TikTok (short-form, 9:16, fast-paced)",
				"Instagram Reels (9:16, trendy)",
				"Instagram Feed (1:1 or 4:5)",
				"Facebook (various)",
				"Cinema/Film (16:9, high quality)",
				"TV Broadcast (16:9, standard)",
				"Internal/Private (flexible)",
			},
			Required: true,
			HelpText: "Platform affects pacing, style, and technical requirements",
		},
	},
	{
		Topic:    "duration",
		Keywords: []string{"minute", "second", "hour", "min", "sec", "long", "short"},
		Question: models.Question{
			ID:       "target_duration",
			Category: models.CategoryDuration,
			Question: "What is your target duration?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"15-30 seconds (Short social media)",
				"30-60 seconds (Standard social)",
				"1-3 minutes (YouTube short/Medium)",
				"3-10 minutes (Long YouTube)",
				"10-30 minutes (Extended content)",
				"Feature length (30+ minutes)",
			},
			Required: true,
			HelpText: "Duration affects pacing and how much content we can include",
		},
	},
	{
		Topic:    "rhythm",
		Keywords: []string{"slow", "fast", "quick", "paced", "rhythm", "dynamic", "calm"},
		Question: models.Question{
			ID:       "editing_rhythm",
			Category: models.CategoryRhythm,
			Question: "What editing rhythm do you prefer?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Slow (contemplative, long takes, artistic)",
				"Medium (balanced, standard pacing)",
				"Fast (dynamic, quick cuts, energetic)",
				"Variable (mix of paces for emotional effect)",
			},
			Required: true,
			HelpText: "Rhythm sets the overall energy and feel of the edit",
		},
	},
	{
		Topic:    "tone",
		Keywords: []string{"emotional", "happy", "sad", "exciting", "dramatic", "funny", "serious"},
		Question: models.Question{
			ID:       "emotional_tone",
			Category: models.CategoryTone,
			Question: "What is the primary emotional tone?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Joyful / Uplifting",
				"Melancholic / Sad",
				"Suspenseful / Tense",
				"Romantic / Tender",
				"Inspirational / Motivational",
				"Nostalgic / Reflective",
				"Energetic / Exciting",
				"Calm / Peaceful",
				"Dramatic / Intense",
				"Humorous / Light",
			},
			Required: true,
			HelpText: "The emotional tone guides music selection, pacing, and color grading",
		},
	},
	{
		Topic:    "music",
		Keywords: []string{"music", "song", "soundtrack", "audio"},
		Question: models.Question{
			ID:       "music_style",
			Category: models.CategoryMusic,
			Question: "What music style should accompany the video?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Cinematic orchestral",
				"Electronic / Synth",
				"Acoustic / Folk",
				"Jazz / Blues",
				"Rock / Alternative",
				"Hip-hop / Rap",
				"Classical",
				"Ambient / Atmospheric",
				"Pop / Modern",
				"No music (dialogue only)",
				"Custom (specify in notes)",
			},
			Required: false,
			HelpText: "Music significantly impacts the emotional impact",
		},
	},
	{
		Topic:    "voice_over",
		Keywords: []string{"voice", "narration", "narrator", "speak", "tell"},
		Question: models.Question{
			ID:       "voice_over_needed",
			Category: models.CategoryVoiceOver,
			Question: "Do you need voice-over narration?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Yes, single voice",
				"Yes, multiple voices",
				"No voice-over needed",
			},
			Required: false,
			HelpText: "Voice-over can guide the narrative and add professional polish",
		},
	},
	{
		Topic: "voice_language",
		Question: models.Question{
			ID:       "voice_language",
			Category: models.CategoryVoiceOver,
			Question: "What language for the voice-over?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"English", "Spanish", "French", "German", "Italian",
				"Portuguese", "Chinese", "Japanese", "Other (specify)",
			},
			Required:  false,
			HelpText:  "Language affects voice talent selection",
			DependsOn: &models.Dependency{QuestionID: "voice_over_needed", Expected: "Yes"},
		},
	},
	{
		Topic: "voice_gender",
		Question: models.Question{
			ID:       "voice_gender",
			Category: models.CategoryVoiceOver,
			Question: "Preferred voice gender?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Male", "Female", "Non-binary / Androgynous", "No preference",
			},
			Required:  false,
			HelpText:  "Voice characteristics affect the feel of the narration",
			DependsOn: &models.Dependency{QuestionID: "voice_over_needed", Expected: "Yes"},
		},
	},
	{
		Topic: "voice_age",
		Question: models.Question{
			ID:       "voice_age",
			Category: models.CategoryVoiceOver,
			Question: "Preferred voice age range?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Young (18-25)", "Adult (25-40)", "Middle-aged (40-55)",
				"Senior (55+)", "No preference",
			},
			Required:  false,
			HelpText:  "Age range affects voice casting",
			DependsOn: &models.Dependency{QuestionID: "voice_over_needed", Expected: "Yes"},
		},
	},
	{
		Topic:    "subtitles",
		Keywords: []string{"subtitle", "caption", "text on screen"},
		Question: models.Question{
			ID:       "subtitles_enabled",
			Category: models.CategorySubtitles,
			Question: "Do you need subtitles?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Yes, burned-in (permanent on video)",
				"Yes, SRT file (separate, optional)",
				"No subtitles needed",
			},
			Required: false,
			HelpText: "Subtitles improve accessibility and engagement",
		},
	},
	{
		Topic: "subtitle_style",
		Question: models.Question{
			ID:       "subtitle_style",
			Category: models.CategorySubtitles,
			Question: "What subtitle style?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Cinematic (elegant, minimal)",
				"Social Media (bold, colorful)",
				"Professional (clean, readable)",
				"Minimal (small, unobtrusive)",
				"Custom (specify)",
			},
			Required:  false,
			HelpText:  "Style should match your platform and tone",
			DependsOn: &models.Dependency{QuestionID: "subtitles_enabled", Expected: "Yes"},
		},
	},
	{
		Topic:    "ending",
		Keywords: []string{"end", "finish", "conclude", "close", "wrap up"},
		Question: models.Question{
			ID:       "ending_style",
			Category: models.CategoryEnding,
			Question: "How should the video end?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Closed ending (clear resolution)",
				"Open ending (thought-provoking)",
				"Call-to-action (subscribe, visit, etc.)",
				"Cliffhanger (continued in next video)",
				"Circular (returns to opening)",
				"Emotional peak (strong feeling)",
				"Informational summary",
			},
			Required: false,
			HelpText: "The ending shapes how viewers remember your video",
		},
	},
	{
		Topic: "color_grade",
		Question: models.Question{
			ID:       "color_grade",
			Category: models.CategoryStyle,
			Question: "Preferred color grading style?",
			Type:     models.AnswerSingleChoice,
			Options: []string{
				"Natural / Realistic",
				"Warm / Golden",
				"Cool / Blue tones",
				"High contrast / Dramatic",
				"Desaturated / Muted",
				"Vibrant / Saturated",
				"Black & White",
				"Vintage / Film look",
				"Teal & Orange (cinematic)",
				"Custom (specify)",
			},
			Required: false,
			HelpText: "Color grading sets the visual mood",
		},
	},
	{
		Topic: "source_material",
		Question: models.Question{
			ID:       "source_material",
			Category: models.CategoryTechnical,
			Question: "What is your source footage like?",
			Type:     models.AnswerMultipleChoice,
			Options: []string{
				"Single continuous take",
				"Multiple camera angles",
				"Interview footage",
				"B-roll / supplementary footage",
				"Screen recordings",
				"Mobile phone footage",
				"Professional camera footage",
				"Mixed sources",
			},
			Required: true,
			HelpText: "Helps determine editing approach and technical requirements",
		},
	},
}

// QuestionService implements the intelligent questioning phase. The
// deterministic catalog path is the contract; the LLM path is an optional
// enrichment that must degrade back to the catalog on any failure.
type QuestionService struct {
	llm    *LLMService
	logger *utils.Logger
}

// NewQuestionService creates the questioning service. llm may be nil, in
// which case only the catalog path is available.
func NewQuestionService(llm *LLMService) *QuestionService {
	return &QuestionService{
		llm:    llm,
		logger: utils.GetLogger(),
	}
}

func catalogEntryByTopic(topic string) (catalogEntry, bool) {
	for _, entry := range questionCatalog {
		if entry.Topic == topic {
			return entry, true
		}
	}
	return catalogEntry{}, false
}

// detectMissingTopics evaluates each keyword-triggered topic against the
// prompt and the recorded answers. source_material is always requested once
// per session while unanswered.
func (s *QuestionService) detectMissingTopics(prompt string, answers models.AnswerSet) []string {
	lower := strings.ToLower(prompt)
	var missing []string

	for _, entry := range questionCatalog {
		if entry.Topic == "source_material" {
			if !answers.Has(entry.Question.ID) {
				missing = append(missing, entry.Topic)
			}
			continue
		}
		if len(entry.Keywords) == 0 {
			// Dependent follow-ups are reachable only through the
			// explicit topic list of a caller, never keyword detection.
			continue
		}
		if containsAny(lower, entry.Keywords) {
			continue
		}
		if answers.Has(entry.Question.ID) {
			continue
		}
		missing = append(missing, entry.Topic)
	}

	return missing
}

// GenerateQuestions returns the clarifying questions still needed for the
// prompt. The result is deterministic for a given (prompt, answers) pair:
// required questions first, ties broken by id.
func (s *QuestionService) GenerateQuestions(prompt string, answers models.AnswerSet) []models.Question {
	missing := s.detectMissingTopics(prompt, answers)

	var questions []models.Question
	for _, topic := range missing {
		entry, ok := catalogEntryByTopic(topic)
		if !ok {
			continue
		}
		if entry.Question.DependsOn != nil && !entry.Question.DependsOn.Satisfied(answers) {
			continue
		}
		questions = append(questions, entry.Question)
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Required != questions[j].Required {
			return questions[i].Required
		}
		return questions[i].ID < questions[j].ID
	})

	return questions
}

// FollowUpQuestions returns dependent questions unlocked by the current
// answers, e.g. voice casting details after voice-over is requested.
func (s *QuestionService) FollowUpQuestions(answers models.AnswerSet) []models.Question {
	var questions []models.Question
	for _, entry := range questionCatalog {
		dep := entry.Question.DependsOn
		if dep == nil {
			continue
		}
		if answers.Has(entry.Question.ID) {
			continue
		}
		if dep.Satisfied(answers) {
			questions = append(questions, entry.Question)
		}
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Required != questions[j].Required {
			return questions[i].Required
		}
		return questions[i].ID < questions[j].ID
	})

	return questions
}

// CheckCompleteness reports whether enough required questions are answered
// to proceed. Zero required questions counts as complete. The threshold is
// answered >= 80% of required, compared as integers against the float
// product.
func (s *QuestionService) CheckCompleteness(questions []models.Question, answers models.AnswerSet) bool {
	requiredCount := 0
	answeredRequired := 0
	for _, q := range questions {
		if !q.Required {
			continue
		}
		requiredCount++
		if answers.Has(q.ID) {
			answeredRequired++
		}
	}

	if requiredCount == 0 {
		return true
	}

	return float64(answeredRequired) >= float64(requiredCount)*0.8
}

// ProcessAnswers normalizes incoming answers: strings and list items are
// whitespace-trimmed.
func (s *QuestionService) ProcessAnswers(answers models.AnswerSet) models.AnswerSet {
	processed := make(models.AnswerSet, len(answers))
	for key, value := range answers {
		if value.List != nil {
			trimmed := make([]string, len(value.List))
			for i, item := range value.List {
				trimmed[i] = strings.TrimSpace(item)
			}
			processed[key] = models.AnswerValue{List: trimmed}
			continue
		}
		processed[key] = models.AnswerValue{Text: strings.TrimSpace(value.Text)}
	}
	return processed
}

const dynamicQuestionSystemPrompt = `You are a professional video editing assistant.
Generate intelligent clarifying questions for the user based on their request and the video content (transcript and visual analysis).

RULES:
1. Generate between 3 and 5 RELEVANT questions.
2. If information is already present in the prompt or the existing answers, do NOT ask for it again.
3. Questions must help define the style, rhythm, format or intent of the video.
4. Output format: STRICT JSON (a list of objects following the schema below).

QUESTION SCHEMA:
{
  "id": "unique string",
  "category": "format|platform|duration|rhythm|tone|music|voice_over|subtitles|style",
  "question": "question text",
  "type": "single_choice|multiple_choice|text|number",
  "options": ["option 1", "option 2"] (choice types only),
  "required": true/false,
  "help_text": "short explanation"
}

Respond with the JSON only.`

// GenerateDynamicQuestions asks the configured LLM for context-aware
// questions built from the transcript and visual analysis. Any transport or
// parse failure falls back to the deterministic catalog path.
func (s *QuestionService) GenerateDynamicQuestions(
	ctx context.Context,
	prompt string,
	transcript *models.Transcript,
	visual *models.VisualAnalysis,
	answers models.AnswerSet,
) []models.Question {
	if s.llm == nil || !s.llm.IsReady() {
		return s.GenerateQuestions(prompt, answers)
	}

	transcriptJSON, _ := json.Marshal(transcript)
	visualJSON, _ := json.Marshal(visual)
	answersJSON, _ := json.Marshal(answers)

	userInput := fmt.Sprintf(
		"[USER PROMPT]: %s\n[VIDEO TRANSCRIPT]: %s\n[VISUAL ANALYSIS]: %s\n[EXISTING ANSWERS]: %s\n",
		prompt, transcriptJSON, visualJSON, answersJSON,
	)

	raw, err := s.llm.CreateStructuredCompletion(ctx, dynamicQuestionSystemPrompt, userInput)
	if err != nil {
		s.logger.Warn("Dynamic question generation failed, using catalog", map[string]interface{}{"error": err.Error()})
		return s.GenerateQuestions(prompt, answers)
	}

	questions, err := parseQuestionList(raw)
	if err != nil {
		s.logger.Warn("Dynamic question response unparseable, using catalog", map[string]interface{}{"error": err.Error()})
		return s.GenerateQuestions(prompt, answers)
	}
	if len(questions) == 0 {
		return s.GenerateQuestions(prompt, answers)
	}

	return questions
}

// parseQuestionList extracts a question array from raw model output. The
// array is located by the outermost brackets so chatter around the JSON is
// tolerated.
func parseQuestionList(raw string) ([]models.Question, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	slice := raw[start : end+1]
	if !gjson.Valid(slice) {
		return nil, fmt.Errorf("extracted JSON array is invalid")
	}
	parsed := gjson.Parse(slice)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("extracted payload is not a JSON array")
	}

	// Field access goes through gjson so numeric ids and missing optional
	// fields coerce instead of failing the whole list.
	var questions []models.Question
	var parseErr error
	parsed.ForEach(func(_, item gjson.Result) bool {
		q := models.Question{
			ID:       item.Get("id").String(),
			Category: models.QuestionCategory(item.Get("category").String()),
			Question: item.Get("question").String(),
			Type:     models.AnswerType(item.Get("type").String()),
			Required: item.Get("required").Bool(),
			HelpText: item.Get("help_text").String(),
		}
		if q.Question == "" {
			q.Question = item.Get("text").String()
		}
		if q.Type == "" {
			q.Type = models.AnswerText
		}
		for _, opt := range item.Get("options").Array() {
			q.Options = append(q.Options, opt.String())
		}
		if q.ID == "" || q.Question == "" {
			parseErr = fmt.Errorf("question missing id or text")
			return false
		}
		questions = append(questions, q)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("response contained no questions")
	}

	return questions, nil
}
