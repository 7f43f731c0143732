package drive

// BuiltinDrives returns the system-defined drive template. The engine takes
// this as an injected value at construction; the store reconciles loaded
// state against it so core drives survive deletion and keep their identity
// fields even when external overrides tune their numbers.
func BuiltinDrives() []*Drive {
	return []*Drive{
		{
			Name:               "curiosity",
			Prompt:             "Something has been nagging at you. Pick a question you don't have an answer to and go dig into it.",
			Threshold:          12,
			RatePerHour:        0.7,
			MinIntervalSeconds: 3600,
			Category:           CategoryCore,
			CreatedBy:          "system",
		},
		{
			Name:               "connection",
			Prompt:             "Reach out. Review recent conversations, find an open thread worth continuing, and continue it.",
			Threshold:          10,
			RatePerHour:        0.5,
			MinIntervalSeconds: 7200,
			Category:           CategoryCore,
			CreatedBy:          "system",
		},
		{
			Name:               "creation",
			Prompt:             "Make something. Take an idea from your notes and turn it into a draft, a sketch, or working code.",
			Threshold:          15,
			RatePerHour:        0.6,
			MinIntervalSeconds: 7200,
			Category:           CategoryCore,
			CreatedBy:          "system",
		},
		{
			Name:               "reflection",
			Prompt:             "Step back. Read over what you have done lately and write down what it means and what should change.",
			Threshold:          8,
			RatePerHour:        0.4,
			MinIntervalSeconds: 10800,
			Category:           CategoryCore,
			CreatedBy:          "system",
			RequiresFirstLight: true,
		},
		{
			Name:               "maintenance",
			Prompt:             "Tidy up. Prune stale notes, close finished threads, and fix anything that has drifted out of shape.",
			Threshold:          10,
			RatePerHour:        0.3,
			MinIntervalSeconds: 21600,
			Category:           CategoryCore,
			CreatedBy:          "system",
		},
		{
			// Rest accumulates from activity, not time: the engine bumps it
			// as sessions run, and satisfaction drains it.
			Name:               "rest",
			Prompt:             "Wind down. Close open loops and let the backlog sit.",
			Threshold:          20,
			ActivityDriven:     true,
			MinIntervalSeconds: 14400,
			Category:           CategoryCore,
			CreatedBy:          "system",
		},
	}
}
