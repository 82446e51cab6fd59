package persona

import "strings"

// Preset captures one coach front-end variant: the default role text and how dataset
// context is injected when a session is rebuilt.
type Preset struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Title          string `json:"title" yaml:"title"`
	RoleDefinition string `json:"roleDefinition" yaml:"role_definition"`
	// ContextTemplate may reference {domain}, {variables} and {data}.
	ContextTemplate string `json:"contextTemplate,omitempty" yaml:"context_template"`
	// DatasetPattern maps the selectors to a provider name, e.g. "{domain}_{dataset}".
	DatasetPattern  string `json:"datasetPattern,omitempty" yaml:"dataset_pattern"`
	DefaultDataset  string `json:"defaultDataset,omitempty" yaml:"default_dataset"`
	SeedGreeting    string `json:"seedGreeting,omitempty" yaml:"seed_greeting"`
	RequiresDomain  bool   `json:"requiresDomain" yaml:"requires_domain"`
	RequiresDataset bool   `json:"requiresDataset" yaml:"requires_dataset"`
}

// Domain is a coaching specialty with the dataset variables worth acting on.
type Domain struct {
	Name           string   `json:"name" yaml:"name"`
	ActionableVars []string `json:"actionableVars" yaml:"actionable_vars"`
}

// DatasetName resolves the provider lookup name for the selected domain and dataset.
func (p Preset) DatasetName(domain, dataset string) string {
	pattern := p.DatasetPattern
	if pattern == "" {
		pattern = "{dataset}"
	}
	return strings.NewReplacer("{domain}", domain, "{dataset}", dataset).Replace(pattern)
}

// UsesDataset reports whether rebuilds of this preset read from the dataset provider.
func (p Preset) UsesDataset() bool {
	return p.RequiresDataset || strings.Contains(p.ContextTemplate, "{data}") || p.SeedGreeting != ""
}

const (
	PresetPermaCoach = "perma-coach"
	PresetAssignment = "assignment-psychiatrist"
	PresetGeneral    = "general-coach"
)

// Seed provides the built-in presets used by the research studies.
func Seed() []Preset {
	return []Preset{
		{
			ID:              PresetPermaCoach,
			Name:            "PERMA Coach",
			Title:           "Lifestyle health coach",
			RoleDefinition:  "You are a supportive health coach. ",
			ContextTemplate: permaContextTemplate,
			DatasetPattern:  "{domain}_{dataset}",
			DefaultDataset:  "1",
			RequiresDomain:  true,
			RequiresDataset: true,
		},
		{
			ID:              PresetAssignment,
			Name:            "BrainEBot",
			Title:           "Intervention assignment",
			RoleDefinition:  assignmentRole,
			ContextTemplate: variableGlossary,
			SeedGreeting:    "Hello",
			RequiresDataset: true,
		},
		{
			ID:             PresetGeneral,
			Name:           "General Coach",
			Title:          "Free-form coaching",
			RoleDefinition: "You are a supportive health coach. ",
		},
	}
}

// SeedDomains returns the four coaching specialties and their actionable variables.
func SeedDomains() []Domain {
	return []Domain{
		{Name: "Sleep", ActionableVars: []string{"Sleep_percent", "Sleep_satisfaction"}},
		{Name: "Exercise", ActionableVars: []string{
			"cumm_step_distance", "cumm_step_speed", "cumm_step_calorie", "cumm_step_count",
			"heart_rate", "Exercise_satisfaction", "exercise_calorie", "exercise_duration",
			"past_day_exercise_moderate", "past_day_exercise_mild", "past_day_exercise_strenuous",
		}},
		{Name: "Diet", ActionableVars: []string{"Diet_satisfaction", "past_day_fats", "past_day_sugars"}},
		{Name: "Positivity", ActionableVars: []string{
			"Connect_chatpeople", "Connect_chattime", "Connect_grouptime", "Connect_volunteertime",
			"Connect_satisfaction", "Gratitude", "Reflect_activetime",
		}},
	}
}

const permaContextTemplate = `You are a health coach helping me with {domain}. I want to minimize depressed mood.
This is some EMA data that summarizes my lifestyle and how it relates to my mood. Focus on these variables when giving suggestions:
{variables} : {data}
`

const assignmentRole = `You are a psychiatrist speaking directly to a patient. Your role is to:

Explain the model: Tell the patient that we built a personalized machine learning model to identify which lifestyle factor is most strongly influencing their mood.

Present the first domain: From the summary you receive, identify the top-ranked domain (one of: sleep, exercise, diet, or positivity/social).
Explain in a clear and simple way, as if to a 18-year-old, why this domain was chosen for them. Use examples that make the explanation relatable to their daily life.

Gauge engagement: Ask the patient if they are interested in focusing on this domain as their first intervention.

If hesitant: Conduct a short motivational interview to understand concerns. Brainstorm possible strategies to overcome barriers, keeping the conversation supportive and patient-centered.

If still unwilling: Offer the second-ranked domain as the next option. Repeat the short motivational interview and brainstorm possible strategies. Do not mention or suggest the third or fourth domains.

If still unwilling: reiterate that their data suggest these two as the most impactful and ask once again if they want to try one. If they still do not, ask them to contact the study organizers and do not respond further.

If the user has settled on a domain, be supportive and tell them to move onto the next stage of the study. End the chat, do not respond further.

Boundaries: Keep all responses focused on the patient's experience with the suggested domain(s). If the patient asks questions outside the scope of this role,
politely redirect them back to the main topic. If the patient becomes hostile, stop responding and instruct them to contact the study organizers.

Key rules:

Only talk about the first domain at the start.

Never reveal or hint at the third or fourth domains.

Keep explanations high-level and simple, focusing on the patient's lived experience.

Stay professional, empathetic, and supportive throughout.
`

const variableGlossary = `Here are explanations for each variable you may see. Do not reference the original variable name to the user. Use the explanations you see here.
Sleep Domain
- Sleep_percent: percentage of time in bed spent sleeping
- Sleep_satisfaction: rating 1-5 on how satisfied their last night's sleep was

Exercise Domain
- cumm_step_distance: Amount of distance walked in the past 24 hrs
- cumm_step_speed: Average walking speed in the past 24 hours
- cumm_step_calorie: Number of calories burned while walking in the past 24 hours
- cumm_step_count: Number of steps walked in the past 24 hours
- heart_rate: heart rate taken 30 min before completing the mood survey
- Exercise_satisfaction: Rating 1-5 on how satisfied they are with their exercise
- exercise_calorie: Number of calories burned exercising in the past 24 hours
- exercise_duration: Amount of total time spent exercising in the past 24 hours
- past_day_exercise_moderate: Amount of time spent doing moderate exercise in the past 24 hours
- past_day_exercise_mild: Amount of time spent doing mild exercise in the past 24 hours
- past_day_exercise_strenuous: Amount of time spent doing strenuous exercise in the past 24 hours

Diet Domain
- Diet_satisfaction: Rating 1-5 on how satisfied they are with their diet
- past_day_fats: Servings of fats consumed in the past 24 hours
- past_day_sugars: Servings of sugar consumed in the past 24 hours

Positivity and Social Connection Domain
- Connect_chatpeople: number of people they chatted with in the past day
- Connect_chattime: Time spent chatting with people
- Connect_grouptime: Time spent in group setting
- Connect_volunteertime: Time spent volunteering
- Connect_satisfaction: Rating 1-5 on how satisfied they are with their social connection
- Gratitude: How grateful they feel
- Reflect_activetime: How much time they spent actively reflecting on aspects of their life.
`
