package registry

import "onboarding-agent/internal/domain"

func f64(v float64) *float64 { return &v }

// Default returns the built-in health-coaching onboarding catalog.
func Default() *Registry {
	r, err := New(defaultSteps())
	if err != nil {
		// The built-in catalog is covered by tests; a build-time error here
		// is a programming mistake.
		panic(err)
	}
	return r
}

func defaultSteps() []domain.Step {
	return []domain.Step{
		{
			ID:       "display_name",
			Title:    "Display name",
			Question: "What would you like us to call you?",
			Template: domain.Payload{
				Kind:        domain.KindText,
				ID:          "display_name",
				Prompt:      "What would you like us to call you?",
				Placeholder: "Enter a display name",
				Required:    true,
				MinLen:      2,
				MaxLen:      40,
			},
		},
		{
			ID:       "birthday",
			Title:    "Birthday",
			Question: "When were you born?",
			Template: domain.Payload{
				Kind:        domain.KindDate,
				ID:          "birthday",
				Prompt:      "When were you born?",
				Placeholder: "YYYY-MM-DD",
				Required:    true,
			},
		},
		{
			ID:       "sex",
			Title:    "Sex / gender",
			Question: "Sex / gender",
			Template: domain.Payload{
				Kind:     domain.KindRadio,
				ID:       "sex",
				Prompt:   "Sex / gender",
				Required: true,
				Options: []domain.Option{
					{Value: "male", Label: "Male"},
					{Value: "female", Label: "Female"},
					{Value: "other", Label: "Other"},
				},
			},
		},
		{
			ID:       "height",
			Title:    "Height",
			Question: "How tall are you (cm)?",
			Template: domain.Payload{
				Kind:     domain.KindNumeric,
				ID:       "height",
				Prompt:   "How tall are you (cm)?",
				Required: true,
				Min:      f64(100),
				Max:      f64(250),
			},
		},
		{
			ID:       "training_experience",
			Title:    "Experience",
			Question: "How many years have you been training?",
			Template: domain.Payload{
				Kind:     domain.KindNumeric,
				ID:       "training_experience",
				Prompt:   "How many years have you been training?",
				Required: true,
				Min:      f64(0),
				Max:      f64(40),
			},
		},
		{
			ID:       "training_style",
			Title:    "Training style",
			Question: "What kind of training do you do?",
			Template: domain.Payload{
				Kind:      domain.KindSelect,
				ID:        "training_style",
				Prompt:    "What kind of training do you do?",
				Required:  true,
				Multi:     true,
				AllowFree: true,
				MaxLen:    50,
				Options: []domain.Option{
					{Value: "strength", Label: "Strength"},
					{Value: "cardio", Label: "Cardio"},
					{Value: "crossfit", Label: "CrossFit"},
					{Value: "yoga", Label: "Yoga"},
					{Value: "sports", Label: "Sports"},
				},
			},
		},
		{
			ID:       "equipment",
			Title:    "Equipment",
			Question: "What equipment do you have access to?",
			Template: domain.Payload{
				Kind:     domain.KindCheckbox,
				ID:       "equipment",
				Prompt:   "What equipment do you have access to?",
				Required: true,
				Options: []domain.Option{
					{Value: "none", Label: "No equipment"},
					{Value: "dumbbells", Label: "Dumbbells"},
					{Value: "barbell", Label: "Barbell & plates"},
					{Value: "machines", Label: "Gym machines"},
					{Value: "bands", Label: "Resistance bands"},
				},
			},
		},
		{
			ID:       "availability",
			Title:    "Availability",
			Question: "When can you usually train?",
			Template: domain.Payload{
				Kind:        domain.KindText,
				ID:          "availability",
				Prompt:      "When can you usually train?",
				Placeholder: "e.g. weekday mornings, 45 minutes",
				Required:    true,
				MinLen:      10,
				MaxLen:      120,
			},
		},
		{
			ID:       "limitations",
			Title:    "Limitations",
			Question: "Any injuries or limitations we should know about?",
			Template: domain.Payload{
				Kind:        domain.KindText,
				ID:          "limitations",
				Prompt:      "Any injuries or limitations we should know about?",
				Placeholder: "None",
				MaxLen:      200,
			},
		},
		{
			ID:       "review",
			Title:    "Review",
			Question: "Everything look right?",
			Template: domain.Payload{
				Kind:     domain.KindReview,
				ID:       "review",
				Prompt:   "Everything look right? (yes/no)",
				Required: true,
			},
		},
	}
}
