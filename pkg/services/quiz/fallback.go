package quiz

import "hash/fnv"

type cannedQuestion struct {
	question string
	options  [4]string
	correct  int
}

// Served when the oracle fails so a quiz is always available
var fallbackQuestions = []cannedQuestion{
	{
		question: "Which company did Steve Jobs and Steve Wozniak found in 1976?",
		options:  [4]string{"Microsoft", "Apple", "Atari", "IBM"},
		correct:  1,
	},
	{
		question: "What was the name of the first widely used graphical web browser?",
		options:  [4]string{"Netscape", "Lynx", "Mosaic", "Opera"},
		correct:  2,
	},
	{
		question: "Which machine introduced the mouse-driven GUI to the mass market in 1984?",
		options:  [4]string{"Macintosh", "Amiga 1000", "Commodore 64", "Xerox Alto"},
		correct:  0,
	},
	{
		question: "Where was the Xerox research center that pioneered the graphical user interface?",
		options:  [4]string{"Cupertino", "Redmond", "Armonk", "Palo Alto"},
		correct:  3,
	},
}

func fallbackFor(title string) cannedQuestion {
	h := fnv.New32a()
	h.Write([]byte(title))
	return fallbackQuestions[int(h.Sum32()%uint32(len(fallbackQuestions)))]
}
