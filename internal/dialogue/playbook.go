package dialogue

import "strings"

// Category classifies a goal title for canned suggestions.
type Category string

const (
	CategoryRunning     Category = "running"
	CategoryFitness     Category = "fitness"
	CategoryLanguage    Category = "language"
	CategoryMusic       Category = "music"
	CategoryReading     Category = "reading"
	CategorySavings     Category = "savings"
	CategoryQuitSmoking Category = "quit_smoking"
	CategoryGeneral     Category = "general"
)

// Playbook is the canned suggestion set for a category.
type Playbook struct {
	Timeframe  []string
	Milestones []string
	Daily      []string
	Weekly     []string
}

type rule struct {
	category Category
	keywords []string
}

// rules are checked in order; the first keyword hit wins.
var rules = []rule{
	{CategoryRunning, []string{"marathon", "half marathon", "5k", "10k", "run ", "running"}},
	{CategoryQuitSmoking, []string{"smoking", "smoke", "cigarette", "vape", "vaping"}},
	{CategoryFitness, []string{"weight", "gym", "fitness", "muscle", "push-up", "pushup", "workout"}},
	{CategoryLanguage, []string{"spanish", "french", "german", "japanese", "chinese", "language", "fluent"}},
	{CategoryMusic, []string{"guitar", "piano", "violin", " sing ", "singing", "drum", "music", "instrument"}},
	{CategoryReading, []string{" read ", "reading", "books", "novel"}},
	{CategorySavings, []string{"save", "saving", "money", "debt", "budget", "invest"}},
}

var playbooks = map[Category]Playbook{
	CategoryRunning: {
		Timeframe: []string{
			"16-20 weeks if you're already running regularly",
			"24-30 weeks if you're starting from scratch",
			"Consider targeting a specific race event",
		},
		Milestones: []string{
			"Run 5K continuously (Month 1)",
			"Complete 10K race (Month 2)",
			"Run Half Marathon (Month 4)",
			"Complete 30K training run (Month 5)",
			"Marathon Success! (Final Month)",
		},
		Daily: []string{
			"Complete scheduled training run",
			"Do stretching routine",
			"Log workout details",
			"Track nutrition/hydration",
		},
		Weekly: []string{
			"Long training run",
			"Review weekly mileage",
			"Plan next week's routes",
			"Equipment check",
		},
	},
	CategoryQuitSmoking: {
		Timeframe: []string{
			"Pick a quit date within the next 2 weeks",
			"Expect 8-12 weeks for cravings to settle",
		},
		Milestones: []string{
			"Set quit date and tell friends",
			"First smoke-free week",
			"One month smoke-free",
			"Three months smoke-free",
			"Six months smoke-free",
		},
		Daily: []string{
			"Log cravings and triggers",
			"Replace the usual smoke break with a walk",
			"Drink water when a craving hits",
		},
		Weekly: []string{
			"Review money saved",
			"Check in with a support buddy",
			"Plan for next week's triggers",
		},
	},
	CategoryFitness: {
		Timeframe: []string{
			"8-12 weeks to see visible changes",
			"6 months for a lasting habit",
		},
		Milestones: []string{
			"Establish a baseline measurement",
			"Complete the first month of training",
			"Hit the halfway target",
			"Reach three quarters of the target",
			"Reach the target",
		},
		Daily: []string{
			"Complete today's workout",
			"Track meals",
			"Get 8 hours of sleep",
		},
		Weekly: []string{
			"Weigh-in or measurement",
			"Meal prep session",
			"Review training plan",
		},
	},
	CategoryLanguage: {
		Timeframe: []string{
			"3 months for basic conversation",
			"12 months for comfortable fluency",
		},
		Milestones: []string{
			"Learn the 500 most common words",
			"Hold a 5 minute conversation",
			"Read a short article without a dictionary",
			"Watch a film without subtitles",
			"Pass a proficiency test",
		},
		Daily: []string{
			"Vocabulary practice (20 minutes)",
			"Listen to a podcast episode",
			"Write three sentences",
		},
		Weekly: []string{
			"Conversation session with a partner",
			"Grammar review",
			"Review vocabulary deck",
		},
	},
	CategoryMusic: {
		Timeframe: []string{
			"3-6 months to play simple songs",
			"1-2 years for confident playing",
		},
		Milestones: []string{
			"Learn the basic chords or scales",
			"Play a first full song",
			"Play along with a recording",
			"Learn a song by ear",
			"Perform for friends",
		},
		Daily: []string{
			"Practice for 30 minutes",
			"Warm-up exercises",
			"Log what you practiced",
		},
		Weekly: []string{
			"Record yourself playing",
			"Learn a new piece",
			"Longer practice session",
		},
	},
	CategoryReading: {
		Timeframe: []string{
			"One book every 2-3 weeks",
			"Set a yearly reading target",
		},
		Milestones: []string{
			"Finish the first book",
			"Quarter of the reading list",
			"Halfway through the list",
			"Three quarters of the list",
			"Reading list complete",
		},
		Daily: []string{
			"Read 20 pages",
			"Note one idea worth remembering",
		},
		Weekly: []string{
			"Pick the next book",
			"Write a short summary",
		},
	},
	CategorySavings: {
		Timeframe: []string{
			"Short term: 3-6 months",
			"Medium term: 6-12 months",
		},
		Milestones: []string{
			"Build a budget",
			"Save the first 10%",
			"Halfway to the target",
			"Three quarters of the target",
			"Target reached",
		},
		Daily: []string{
			"Log every expense",
			"Skip one unplanned purchase",
		},
		Weekly: []string{
			"Transfer to savings",
			"Review spending against budget",
		},
	},
	CategoryGeneral: {
		Timeframe: []string{
			"Short term: 3-6 months",
			"Medium term: 6-12 months",
			"Long term: 1-2 years",
		},
		Milestones: []string{
			"First major achievement (20% of the way)",
			"Quarter way point",
			"Halfway milestone",
			"Three-quarter mark",
			"Final goal achievement",
		},
		Daily: []string{
			"Practice/training session",
			"Progress tracking",
			"Preparation tasks",
		},
		Weekly: []string{
			"Progress review",
			"Planning session",
			"Longer practice/training",
			"Maintenance tasks",
		},
	},
}

// Classify maps a goal title to a category, falling back to CategoryGeneral.
func Classify(title string) Category {
	t := " " + strings.ToLower(title) + " "
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.category
			}
		}
	}
	return CategoryGeneral
}

// PlaybookFor returns the suggestions for c, or the general playbook.
func PlaybookFor(c Category) Playbook {
	if p, ok := playbooks[c]; ok {
		return p
	}
	return playbooks[CategoryGeneral]
}
