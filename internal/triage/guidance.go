package triage

// ResourceKind tells the presentation shell how to act on a Resource.
type ResourceKind string

const (
	ResourceCall     ResourceKind = "call"
	ResourceNearbyER ResourceKind = "nearby_er"
	ResourceInfo     ResourceKind = "info"
)

// Resource is a suggested next step shown with a verdict.
type Resource struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Action      string       `json:"action"`
	Kind        ResourceKind `json:"kind"`
	Target      string       `json:"target,omitempty"`
}

// GuidanceCard is the fixed advice shown for an urgency level.
type GuidanceCard struct {
	Level       UrgencyLevel `json:"urgencyLevel"`
	Severity    int          `json:"severity"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Resources   []Resource   `json:"resources"`
}

// OffersNearbyER reports whether the card links to the facility lookup.
func (c GuidanceCard) OffersNearbyER() bool {
	for _, r := range c.Resources {
		if r.Kind == ResourceNearbyER {
			return true
		}
	}
	return false
}

var guidance = map[UrgencyLevel]GuidanceCard{
	UrgencyRed: {
		Level:       UrgencyRed,
		Title:       "High Urgency",
		Description: "Your symptoms suggest a need for immediate medical attention.",
		Resources: []Resource{
			{
				Title:       "Call Emergency Services",
				Description: "If you are in a life-threatening situation, call 911 now.",
				Action:      "Call 911",
				Kind:        ResourceCall,
				Target:      "tel:911",
			},
			{
				Title:       "Go to Nearest ER",
				Description: "Proceed to the nearest Emergency Room for immediate care.",
				Action:      "Find Nearest ER",
				Kind:        ResourceNearbyER,
			},
		},
	},
	UrgencyYellow: {
		Level:       UrgencyYellow,
		Title:       "Medium Urgency",
		Description: "Your symptoms may require prompt medical attention. Please consult a healthcare provider soon.",
		Resources: []Resource{
			{
				Title:       "Find an Urgent Care",
				Description: "Visit an urgent care center for prompt, non-emergency issues. Wait times vary.",
				Action:      "Find Urgent Care",
				Kind:        ResourceInfo,
			},
			{
				Title:       "Connect via Telehealth",
				Description: "Speak with a doctor online to get advice and a possible diagnosis.",
				Action:      "Start Video Call",
				Kind:        ResourceCall,
			},
		},
	},
	UrgencyGreen: {
		Level:       UrgencyGreen,
		Title:       "Low Urgency",
		Description: "Your symptoms do not appear to be urgent, but monitor your condition.",
		Resources: []Resource{
			{
				Title:       "Schedule a Doctor Visit",
				Description: "For non-urgent issues, schedule an appointment with your primary care physician.",
				Action:      "Schedule Appointment",
				Kind:        ResourceInfo,
			},
			{
				Title:       "Monitor at Home",
				Description: "Rest and keep an eye on your symptoms. Seek care if they worsen.",
				Action:      "Learn More",
				Kind:        ResourceInfo,
			},
		},
	},
}

// Guidance returns the card for level. The second value is false for an
// unknown level.
func Guidance(level UrgencyLevel) (GuidanceCard, bool) {
	card, ok := guidance[level]
	if !ok {
		return GuidanceCard{}, false
	}
	card.Severity = Severity(level)
	card.Resources = append([]Resource(nil), card.Resources...)
	return card, true
}
