package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// HeuristicModelID is reported in modelUsed for offline analyses.
const HeuristicModelID = "heuristic"

const (
	technicalWeight = 1.5
	otherWeight     = 1.0
	maxRequirements = 5
	minSentenceLen  = 30
	maxAdvice       = 4
)

var skillCategories = map[string][]string{
	"technical": {
		"python", "java", "javascript", "typescript", "html", "css", "react", "angular",
		"vue", "nodejs", "node.js", "express", "django", "flask", "fastapi", "spring",
		"hibernate", "sql", "mysql", "postgresql", "mongodb", "nosql", "redis", "aws",
		"azure", "gcp", "google cloud", "docker", "kubernetes", "jenkins", "git", "github",
		"gitlab", "ci/cd", "machine learning", "deep learning", "artificial intelligence",
		"natural language processing", "computer vision", "tensorflow", "pytorch", "keras",
		"scikit-learn", "pandas", "numpy", "data analysis", "data science", "big data",
		"hadoop", "spark", "kafka", "elasticsearch", "kibana", "tableau", "power bi",
		"rest api", "graphql", "microservices", "devops", "cloud computing", "serverless",
		"linux", "unix", "windows", "android", "ios", "mobile development", "blockchain",
		"solidity", "smart contracts", "web3", "cybersecurity", "penetration testing", "go", "golang",
	},
	"soft": {
		"communication", "teamwork", "leadership", "problem solving", "critical thinking",
		"decision making", "time management", "organization", "adaptability", "creativity",
		"interpersonal skills", "collaboration", "mentoring", "presentation", "analytical",
		"attention to detail", "multitasking", "customer service", "negotiation", "empathy",
	},
	"business": {
		"project management", "product management", "business analysis", "strategic planning",
		"stakeholder management", "risk management", "quality assurance", "budget management",
		"marketing", "sales", "crm", "operations", "human resources", "process improvement",
		"vendor management", "compliance", "regulatory", "financial analysis", "forecasting",
	},
	"industry": {
		"healthcare", "finance", "fintech", "e-commerce", "retail", "manufacturing",
		"automotive", "aerospace", "telecommunications", "media", "entertainment",
		"education", "research", "consulting", "startup", "enterprise",
	},
}

var requirementIndicators = []string{
	"must", "should", "required", "essential", "mandatory", "preferred",
	"responsible", "duties", "tasks", "role", "responsibilities",
}

var sectionKeywords = [][]string{
	{"summary", "objective", "profile"},
	{"experience", "work", "employment", "professional"},
	{"education", "degree", "university", "college"},
	{"skills", "competencies", "technical", "proficiencies"},
	{"projects", "portfolio"},
	{"certification", "certificate", "license"},
}

var contactIndicators = []string{"email", "@", "phone", "linkedin", "github"}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields("a an and are as at be by for from has have in is it of on or our the to we with you your will this that who their them into using use") {
		stopWords[w] = struct{}{}
	}
}

type skillPattern struct {
	name      string
	technical bool
	re        *regexp.Regexp
}

// Heuristic scores a resume without a language model.
type Heuristic struct {
	skills []skillPattern
}

func NewHeuristic() *Heuristic {
	var skills []skillPattern
	for category, names := range skillCategories {
		for _, name := range names {
			skills = append(skills, skillPattern{
				name:      name,
				technical: category == "technical",
				re:        regexp.MustCompile(`(^|[^\w])` + regexp.QuoteMeta(name) + `($|[^\w])`),
			})
		}
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].name < skills[j].name })
	return &Heuristic{skills: skills}
}

// Analyze scores resumeText against jobDescription.
func (h *Heuristic) Analyze(in Input) Result {
	keywordScore, matched, missing := h.keywordMatch(in.ResumeText, in.JobDescription)
	expScore, summary, gaps := experienceRelevance(in.ResumeText, in.JobDescription)
	fmtScore, issues, suggestions := formattingScore(in.ResumeText)

	overall := float64(int(0.4*keywordScore + 0.3*expScore + 0.3*fmtScore))

	var advice []string
	if len(missing) > 0 {
		advice = append(advice, "Incorporate these relevant keywords naturally: "+strings.Join(firstN(missing, 5), ", "))
	}
	if expScore < 70 {
		advice = append(advice, "Strengthen experience descriptions with specific examples and quantifiable achievements")
	}
	if fmtScore < 80 {
		advice = append(advice, "Improve ATS compatibility with cleaner formatting and standard section headers")
	}
	if len(advice) == 0 {
		advice = append(advice, "Focus on tailoring your resume more specifically to this job description")
	}

	res := Result{
		OverallScore: overall,
		KeywordMatch: KeywordMatch{
			Score:           keywordScore,
			MatchedKeywords: orEmpty(matched),
			MissingKeywords: orEmpty(missing),
		},
		FormattingScore: FormattingScore{
			Score:       fmtScore,
			Issues:      orEmpty(issues),
			Suggestions: orEmpty(suggestions),
		},
		ExperienceRelevance: &ExperienceRelevance{
			Score:              expScore,
			RelevantExperience: summary,
			Gaps:               orEmpty(gaps),
		},
		ActionableAdvice: firstN(advice, maxAdvice),
		ModelUsed: ModelUsed{
			ID:       HeuristicModelID,
			Name:     "Heuristic analyzer",
			Provider: "local",
		},
	}
	res.clamp()
	return res
}

func (h *Heuristic) findSkills(text string) map[string]bool {
	lower := strings.ToLower(text)
	found := make(map[string]bool)
	for _, s := range h.skills {
		if s.re.MatchString(lower) {
			found[s.name] = true
		}
	}
	return found
}

func (h *Heuristic) keywordMatch(resume, job string) (float64, []string, []string) {
	resumeSkills := h.findSkills(resume)
	jobSkills := h.findSkills(job)

	var found, total float64
	var matched, missing []string
	for _, s := range h.skills {
		if !jobSkills[s.name] {
			continue
		}
		weight := otherWeight
		if s.technical {
			weight = technicalWeight
		}
		total += weight
		if resumeSkills[s.name] {
			found += weight
			matched = append(matched, s.name)
		} else {
			missing = append(missing, s.name)
		}
	}
	if total == 0 {
		return 0, matched, missing
	}
	return found / total * 100, matched, missing
}

func experienceRelevance(resume, job string) (float64, string, []string) {
	var requirements []string
	for _, sentence := range sentences(job) {
		if len(sentence) <= minSentenceLen {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, ind := range requirementIndicators {
			if strings.Contains(lower, ind) {
				requirements = append(requirements, sentence)
				break
			}
		}
		if len(requirements) == maxRequirements {
			break
		}
	}
	if len(requirements) == 0 {
		requirements = []string{"General job requirements"}
	}

	var resumeSentences [][]string
	for _, sentence := range sentences(resume) {
		if len(sentence) > minSentenceLen {
			resumeSentences = append(resumeSentences, tokens(sentence))
		}
	}

	var strong, partial int
	var gaps []string
	for _, req := range requirements {
		best := 0.0
		reqTokens := tokens(req)
		for _, resTokens := range resumeSentences {
			if s := overlap(reqTokens, resTokens); s > best {
				best = s
			}
		}
		switch {
		case best > 75:
			strong++
		case best > 50:
			partial++
		default:
			gaps = append(gaps, req)
		}
	}

	total := len(requirements)
	score := float64(strong*100+partial*60) / float64(total)

	var summary string
	switch {
	case float64(strong) >= float64(total)*0.7:
		summary = fmt.Sprintf("Excellent alignment with %d out of %d key requirements strongly matched.", strong, total)
	case float64(strong+partial) >= float64(total)*0.7:
		summary = fmt.Sprintf("Good alignment with %d out of %d requirements showing relevant experience.", strong+partial, total)
	default:
		summary = fmt.Sprintf("Limited alignment with only %d out of %d requirements strongly matched.", strong, total)
	}
	return score, summary, gaps
}

func formattingScore(resume string) (float64, []string, []string) {
	score := 100.0
	var issues, suggestions []string
	lower := strings.ToLower(resume)

	switch n := len(resume); {
	case n < 800:
		score -= 25
		issues = append(issues, "Resume appears too short for comprehensive evaluation")
		suggestions = append(suggestions, "Expand experience and project descriptions with measurable outcomes")
	case n > 4000:
		score -= 15
		issues = append(issues, "Resume may be too long for optimal ATS parsing")
		suggestions = append(suggestions, "Trim older or less relevant roles to keep the resume focused")
	}

	sections := 0
	for _, keywords := range sectionKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				sections++
				break
			}
		}
	}
	if sections < 3 {
		score -= 20
		issues = append(issues, "Missing essential resume sections")
		suggestions = append(suggestions, "Add standard headers such as Summary, Experience, Education and Skills")
	}

	bullets := strings.Count(resume, "•") + strings.Count(resume, "-") + strings.Count(resume, "*")
	if bullets < 8 {
		score -= 15
		issues = append(issues, "Few bullet points")
		suggestions = append(suggestions, "Consider using more bullet points for better readability")
	}

	contacts := 0
	for _, ind := range contactIndicators {
		if strings.Contains(lower, ind) {
			contacts++
		}
	}
	if contacts < 2 {
		score -= 10
		issues = append(issues, "Contact information is hard to find")
		suggestions = append(suggestions, "Ensure contact information is clearly present")
	}

	return clampScore(score), issues, suggestions
}

func sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '•'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// overlap is the share of requirement tokens present in the candidate sentence, as a percentage.
func overlap(req, candidate []string) float64 {
	if len(req) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(candidate))
	for _, t := range candidate {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range req {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(req)) * 100
}

func firstN(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}
