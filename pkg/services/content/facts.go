package content

import "github.com/fadedpez/quantumtheater/pkg/entities"

// InitialFacts are shown until viewers add their own
var InitialFacts = []entities.Fact{
	{
		ID:       "1",
		Text:     `In 1984, Apple's Macintosh was unveiled with its famous "1984" Super Bowl commercial directed by Ridley Scott, costing $900,000 to produce and positioning the Mac as a tool of liberation against IBM's dominance.`,
		Category: "1984",
	},
	{
		ID:       "2",
		Text:     `Steve Jobs was ousted from Apple in 1985 after a power struggle with CEO John Sculley, whom Jobs himself had recruited from Pepsi with the famous line: "Do you want to sell sugar water for the rest of your life, or do you want to come with me and change the world?"`,
		Category: "Steve Jobs",
	},
	{
		ID:       "3",
		Text:     "The original IBM PC (Model 5150) released in 1981 cost $1,565 and came with 16KB of RAM, a cassette port for storage, and ran on a 4.77 MHz Intel 8088 processor. It became the foundation for the modern PC architecture we still use today.",
		Category: "IBM",
	},
	{
		ID:       "4",
		Text:     "Microsoft's MS-DOS was actually purchased from Seattle Computer Products for $50,000 in 1981. Originally called QDOS (Quick and Dirty Operating System), Microsoft rebranded it and licensed it to IBM, making billions while IBM made nothing from the software.",
		Category: "Microsoft",
	},
	{
		ID:       "5",
		Text:     "The Apple II, released in 1977, was one of the first successful mass-produced microcomputers. It featured color graphics, a BASIC programming language in ROM, and an open architecture that allowed third-party expansion cards - revolutionizing personal computing.",
		Category: "Apple",
	},
}

type seedVideo struct {
	url   string
	title string
}

// The queue starts with a computing history marathon
var seedQueue = []seedVideo{
	{"https://archive.org/embed/TechHistoryBBCDocumentary", "Triumph of the Nerds: The Rise of Accidental Empires"},
	{"https://archive.org/embed/ComputerHistoryMuseumSteveJobs", "Steve Jobs: The Lost Interview (1995)"},
	{"https://archive.org/embed/BBCMicroMenDocumentary", "Micro Men: The Story of Sinclair vs Acorn"},
	{"https://archive.org/embed/CodeRushNetscape1998", "Code Rush: The Beginnings of Netscape/Mozilla"},
	{"https://archive.org/embed/RevolutionOSLinuxDocumentary", "Revolution OS: The Story of Linux and Open Source"},
	{"https://archive.org/embed/TheInternetHistoryBBC", "Download: The True Story of the Internet"},
	{"https://archive.org/embed/IBMThePersonalComputerStory", "IBM: The Personal Computer Story"},
	{"https://archive.org/embed/WarGames1983ComputerHacking", "WarGames (1983) - Classic Computer Hacking Film"},
	{"https://archive.org/embed/TheComputerProgrammeBBC", "The Computer Programme - BBC Documentary Series"},
	{"https://archive.org/embed/ElectricDreams1984", "Electric Dreams (1984) - AI and Personal Computing"},
	{"https://archive.org/embed/SiliconValleyStory", "Silicon Valley: The Untold Story"},
	{"https://archive.org/embed/ARPANETDocumentary", "ARPANET: The Birth of the Internet"},
	{"https://archive.org/embed/TheHackersDocumentary", "Hackers: Wizards of the Electronic Age (1984)"},
	{"https://archive.org/embed/ComputerLiteracy1982", "Computer Literacy Project (1982) - BBC Education"},
}
