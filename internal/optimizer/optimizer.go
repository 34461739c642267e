// Package optimizer estimates token counts and compresses prompts to fit a
// caller-supplied budget while preserving meaning (spec Token Optimizer).
package optimizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Context is the per-call optimization target.
type Context struct {
	AvailableTokens int
	ModelName       string
}

// Result is the output of one optimize() call.
type Result struct {
	OptimizedText    string
	Strategy         string
	EstimatedTokens  int
	Savings          int
	Domain           string
	SuggestedChanges []string
}

// Record is one persisted optimization event (spec OptimizationRecord).
type Record struct {
	OriginalTokens  int       `json:"original_tokens"`
	OptimizedTokens int       `json:"optimized_tokens"`
	Savings         int       `json:"savings"`
	ModelID         string    `json:"model_id"`
	ContextTag      string    `json:"context_tag,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "were": {}, "have": {}, "has": {},
	"had": {}, "not": {}, "but": {}, "you": {}, "your": {}, "can": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "into": {},
	"onto": {}, "about": {}, "over": {}, "under": {}, "then": {}, "than": {},
	"its": {}, "it's": {}, "they": {}, "them": {}, "their": {}, "our": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "how": {},
}

var (
	codeFenceRe    = regexp.MustCompile("```")
	quotedSpeechRe = regexp.MustCompile(`["'][^"']{3,}["']\s*(said|asked|replied|whispered)`)
	pastTenseRe    = regexp.MustCompile(`\b\w+ed\b`)
	specialCharsRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRunRe = regexp.MustCompile(`\s{2,}`)

	cotHintRe = regexp.MustCompile(`(?i)step[- ]?by[- ]?step|chain of thought`)
	totHintRe = regexp.MustCompile(`(?i)branch|explore.*paths|tree of thoughts`)
	deductiveHintRe = regexp.MustCompile(`(?i)therefore|it follows that|deduce`)
	inductiveHintRe = regexp.MustCompile(`(?i)in general|pattern suggests|generalize`)
	abductiveHintRe = regexp.MustCompile(`(?i)best explanation|most likely cause`)
)

// Optimizer implements the Token Optimizer. It is safe for concurrent use;
// per-model EMA ratios are guarded by a mutex the way the provider registry
// guards health state (spec §5 shared-state rule).
type Optimizer struct {
	mu      sync.Mutex
	ratios  map[string]float64
	history []Record
}

// New constructs an Optimizer with an empty per-model ratio table.
func New() *Optimizer {
	return &Optimizer{ratios: make(map[string]float64)}
}

func (o *Optimizer) ratioFor(modelName string) float64 {
	if modelName == "" {
		return 1.0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.ratios[modelName]; ok {
		return r
	}
	return 1.0
}

// UpdateRatio applies an EMA update (alpha=0.05) to the per-model ratio
// given an observed-vs-estimated token count.
func (o *Optimizer) UpdateRatio(modelName string, observed, estimated int) {
	if modelName == "" || estimated <= 0 {
		return
	}
	const alpha = 0.05
	observedRatio := float64(observed) / float64(estimated)

	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.ratios[modelName]
	if !ok {
		current = 1.0
	}
	o.ratios[modelName] = current*(1-alpha) + observedRatio*alpha
}

// EstimateTokens estimates the token count of text using a character/word
// hybrid heuristic, scaled by any learned per-model ratio. Never errors;
// an empty or nil text estimates to 0.
func (o *Optimizer) EstimateTokens(text string, modelName string) int {
	if text == "" {
		return 0
	}

	base := math.Ceil(float64(len(text)) / 4.0)
	base += 0.5 * float64(len(specialCharsRe.FindAllString(text, -1)))
	base -= 0.2 * float64(len(whitespaceRunRe.FindAllString(text, -1)))
	if base < 0 {
		base = 0
	}

	estimate := base * o.ratioFor(modelName)
	return int(math.Round(estimate))
}

// Optimize compresses text to approximately fit ctx.AvailableTokens. It
// never errors; on internal failure (no safe reduction possible) it
// returns the input unchanged with Strategy "none" and Savings 0.
func (o *Optimizer) Optimize(text string, ctx Context) Result {
	originalTokens := o.EstimateTokens(text, ctx.ModelName)
	if originalTokens == 0 || ctx.AvailableTokens <= 0 || originalTokens <= ctx.AvailableTokens {
		return Result{
			OptimizedText:   text,
			Strategy:        "none",
			EstimatedTokens: originalTokens,
			Savings:         0,
			Domain:          classifyDomain(text),
		}
	}

	reductionRatio := 1.0 - float64(ctx.AvailableTokens)/float64(originalTokens)
	domain := classifyDomain(text)
	hint := detectStrategyHint(text)

	strategy := selectStrategy(reductionRatio, domain, hint)
	optimized, changes := applyStrategy(strategy, text, ctx.AvailableTokens, o)

	optimizedTokens := o.EstimateTokens(optimized, ctx.ModelName)
	savings := originalTokens - optimizedTokens
	if savings < 0 {
		// Never regress: guarantee estimate(optimized) <= estimate(original).
		optimized = text
		optimizedTokens = originalTokens
		savings = 0
		strategy = "none"
	}

	o.record(Record{
		OriginalTokens:  originalTokens,
		OptimizedTokens: optimizedTokens,
		Savings:         savings,
		ModelID:         ctx.ModelName,
		ContextTag:      domain,
		Timestamp:       time.Now(),
	})

	return Result{
		OptimizedText:    optimized,
		Strategy:         strategy,
		EstimatedTokens:  optimizedTokens,
		Savings:          savings,
		Domain:           domain,
		SuggestedChanges: changes,
	}
}

func (o *Optimizer) record(r Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, r)
}

// History returns a snapshot of recorded optimizations;
// toolsurface.PerformMaintenance reports its length.
func (o *Optimizer) History() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Record, len(o.history))
	copy(out, o.history)
	return out
}

func classifyDomain(text string) string {
	switch {
	case codeFenceRe.MatchString(text):
		return "technical"
	case quotedSpeechRe.MatchString(text):
		return "conversational"
	case isNarrative(text):
		return "narrative"
	default:
		return "descriptive"
	}
}

func isNarrative(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	pastHits := len(pastTenseRe.FindAllString(text, -1))
	return float64(pastHits)/float64(len(words)) > 0.08
}

func detectStrategyHint(text string) string {
	switch {
	case cotHintRe.MatchString(text):
		return "chain_of_thought"
	case totHintRe.MatchString(text):
		return "tree_of_thoughts"
	case deductiveHintRe.MatchString(text):
		return "deductive"
	case inductiveHintRe.MatchString(text):
		return "inductive"
	case abductiveHintRe.MatchString(text):
		return "abductive"
	default:
		return ""
	}
}

func selectStrategy(reductionRatio float64, domain, hint string) string {
	if hint != "" {
		switch hint {
		case "chain_of_thought":
			return "cot_step_compression"
		case "tree_of_thoughts":
			return "tot_branch_pruning"
		case "deductive":
			return "deductive_core_logic"
		case "inductive":
			return "inductive_core_pattern"
		case "abductive":
			return "abductive_core_hypothesis"
		}
	}

	switch {
	case reductionRatio > 0.5:
		return "concept_extraction"
	case reductionRatio > 0.3:
		return domain + "_compression"
	default:
		return "length_reduction"
	}
}

// applyStrategy applies the chosen transformation deterministically:
// sentences are scored by position, keyword markers, numeric content, and
// stopword density, then kept greedily (highest score first) until the
// token budget is met. First and last sentences are always retained when
// present, mirroring the engine context's "always keep high priority"
// pruning rule.
func applyStrategy(strategy, text string, budget int, o *Optimizer) (string, []string) {
	sentences := splitSentences(text)
	if len(sentences) <= 2 {
		return text, []string{"text too short to compress further"}
	}

	type scored = struct {
		idx   int
		text  string
		score float64
	}
	scoredSentences := make([]scored, len(sentences))
	for i, s := range sentences {
		scoredSentences[i] = scored{idx: i, text: s, score: scoreSentence(s, i, len(sentences))}
	}

	kept := map[int]bool{0: true, len(sentences) - 1: true}
	order := append([]scored{}, scoredSentences...)
	sortByScoreDesc(order)

	currentTokens := o.EstimateTokens(sentences[0]+sentences[len(sentences)-1], "")
	for _, s := range order {
		if kept[s.idx] {
			continue
		}
		if currentTokens >= budget {
			break
		}
		kept[s.idx] = true
		currentTokens += o.EstimateTokens(s.text, "")
	}

	var sb strings.Builder
	changes := []string{strategy}
	for i, s := range sentences {
		if kept[i] {
			sb.WriteString(s)
			sb.WriteString(" ")
		}
	}
	if len(kept) < len(sentences) {
		changes = append(changes, strconv.Itoa(len(sentences)-len(kept))+" low-importance sentences removed")
	}
	return strings.TrimSpace(collapseConnectives(sb.String())), changes
}

func scoreSentence(s string, idx, total int) float64 {
	score := 0.0
	if idx == 0 || idx == total-1 {
		score += 2.0
	}
	lower := strings.ToLower(s)
	for kw := range map[string]struct{}{"important": {}, "must": {}, "required": {}, "critical": {}, "key": {}} {
		if strings.Contains(lower, kw) {
			score += 1.0
		}
	}
	if regexp.MustCompile(`\d`).MatchString(s) {
		score += 0.5
	}

	words := strings.Fields(lower)
	meaningful := 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:")
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		meaningful++
	}
	if len(words) > 0 {
		score += float64(meaningful) / float64(len(words))
	}
	return score
}

func sortByScoreDesc(items []struct {
	idx   int
	text  string
	score float64
}) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].score < items[j].score; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
}

var sentenceSplitRe = regexp.MustCompile(`(?s)(.*?[.!?])(\s+|$)`)

func splitSentences(text string) []string {
	matches := sentenceSplitRe.FindAllStringSubmatch(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		s := strings.TrimSpace(m[1])
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 && strings.TrimSpace(text) != "" {
		sentences = append(sentences, strings.TrimSpace(text))
	}
	return sentences
}

var connectiveRe = regexp.MustCompile(`(?i)\s*,?\s*(furthermore|moreover|additionally|in addition|as well as)\s*,?\s*`)

func collapseConnectives(text string) string {
	return connectiveRe.ReplaceAllString(text, " ")
}

// KeyTerms extracts the lowercase, punctuation-stripped, stopword-excluded
// terms of length > 2 from s, used by the thinking engine's
// coherence/significance computation (spec §4.6).
func KeyTerms(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		terms[w] = struct{}{}
	}
	return terms
}

// Jaccard computes the Jaccard similarity of two term sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
