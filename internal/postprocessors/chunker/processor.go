// Package chunker provides a section-aware, token-bounded chunking processor.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultAverageSentenceTokens converts an overlap token budget into a sentence count.
const DefaultAverageSentenceTokens = 18

// maxOverlapSentences caps the number of sentences carried into the next chunk.
const maxOverlapSentences = 3

// introductionTitle names text that precedes the first heading.
const introductionTitle = "Introduction"

var (
	sectionHeading = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	anyHeading     = regexp.MustCompile(`^#+\s+(.+)$`)
)

// Config bounds the size of emitted chunks. Sizes are whitespace-delimited words.
type Config struct {
	TargetTokens    int
	MinTokens       int
	MaxTokens       int
	OverlapTokens   int
	RespectSections bool
}

// ConfigFromSettings maps chunking settings onto a chunker Config.
func ConfigFromSettings(s domain.ChunkingSettings) Config {
	return Config{
		TargetTokens:    s.TargetTokens,
		MinTokens:       s.MinTokens,
		MaxTokens:       s.MaxTokens,
		OverlapTokens:   s.OverlapTokens,
		RespectSections: s.RespectSections,
	}
}

// Validate enforces 0 < min < target < max and 0 <= overlap < min.
func (c Config) Validate() error {
	return domain.ChunkingSettings{
		TargetTokens:    c.TargetTokens,
		MinTokens:       c.MinTokens,
		MaxTokens:       c.MaxTokens,
		OverlapTokens:   c.OverlapTokens,
		RespectSections: c.RespectSections,
	}.Validate()
}

// SentenceSplitter breaks section text into sentences.
type SentenceSplitter func(text string) []string

// Processor splits document content into section-aware chunks.
// It implements the PostProcessor interface.
type Processor struct {
	cfg            Config
	split          SentenceSplitter
	now            func() time.Time
	avgSentenceTok int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithSentenceSplitter replaces the default punctuation-based splitter.
func WithSentenceSplitter(fn SentenceSplitter) Option {
	return func(p *Processor) {
		if fn != nil {
			p.split = fn
		}
	}
}

// WithClock sets the time source used for Chunk.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAverageSentenceTokens sets the sentence size used to derive the overlap count.
func WithAverageSentenceTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.avgSentenceTok = n
		}
	}
}

// New creates a chunker processor. Invalid bounds fail here rather than at chunk time.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:            cfg,
		split:          SplitSentences,
		now:            time.Now,
		avgSentenceTok: DefaultAverageSentenceTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Config returns the bounds the processor was built with.
func (p *Processor) Config() Config {
	return p.cfg
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	var sections []domain.Section
	if p.cfg.RespectSections {
		sections = ExtractSections(doc.Content)
	} else {
		sections = []domain.Section{wholeDocument(doc)}
	}

	createdAt := p.now()
	var chunks []domain.Chunk

	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range p.chunkSection(section.Body) {
			chunks = append(chunks, newChunk(doc, section, text, len(chunks), createdAt))
		}
	}

	return chunks, nil
}

// OverlapSentences returns how many trailing sentences seed the next chunk.
func (p *Processor) OverlapSentences() int {
	if p.cfg.OverlapTokens == 0 {
		return 0
	}
	n := p.cfg.OverlapTokens / p.avgSentenceTok
	if n < 1 {
		n = 1
	}
	if n > maxOverlapSentences {
		n = maxOverlapSentences
	}
	return n
}

// accumulator tracks the running chunk inside one section.
type accumulator struct {
	sentences []string
	tokens    int
}

func (a *accumulator) add(sentence string, tokens int) {
	a.sentences = append(a.sentences, sentence)
	a.tokens += tokens
}

func (a *accumulator) text() string {
	return strings.Join(a.sentences, " ")
}

// chunkSection greedily packs sentences into texts of at most MaxTokens words.
func (p *Processor) chunkSection(body string) []string {
	var out []string
	var cur accumulator

	closeChunk := func(next int) {
		out = append(out, cur.text())
		cur = p.seed(cur.sentences, next)
	}

	for _, sentence := range p.split(body) {
		words := strings.Fields(sentence)
		for len(words) > 0 {
			if cur.tokens+len(words) <= p.cfg.MaxTokens {
				cur.add(strings.Join(words, " "), len(words))
				break
			}
			if cur.tokens >= p.cfg.MinTokens {
				closeChunk(len(words))
				continue
			}
			// Fill the chunk to exactly MaxTokens at a word boundary.
			room := p.cfg.MaxTokens - cur.tokens
			cur.add(strings.Join(words[:room], " "), room)
			words = words[room:]
			closeChunk(len(words))
		}
	}

	if cur.tokens >= p.cfg.MinTokens && len(cur.sentences) > 0 {
		out = append(out, cur.text())
	}
	return out
}

// seed starts a new accumulation with the trailing overlap sentences of closed,
// dropping from the front until the seed plus the next sentence fits.
func (p *Processor) seed(closed []string, next int) accumulator {
	n := p.OverlapSentences()
	if n > len(closed) {
		n = len(closed)
	}
	tail := closed[len(closed)-n:]

	counts := make([]int, len(tail))
	total := 0
	for i, s := range tail {
		counts[i] = len(strings.Fields(s))
		total += counts[i]
	}
	for len(tail) > 0 && total+next > p.cfg.MaxTokens {
		total -= counts[0]
		tail, counts = tail[1:], counts[1:]
	}

	return accumulator{
		sentences: append([]string(nil), tail...),
		tokens:    total,
	}
}

// ExtractSections splits normalised content on level 1-3 headings.
// Text before the first heading, or a document with no headings, becomes an
// "Introduction" section at level 0. Sections with an empty body are skipped.
func ExtractSections(content string) []domain.Section {
	var sections []domain.Section
	current := domain.Section{Title: introductionTitle}
	var body []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			current.Body = text
			sections = append(sections, current)
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		m := sectionHeading.FindStringSubmatch(line)
		if m == nil {
			body = append(body, line)
			continue
		}
		flush()
		current = domain.Section{Title: strings.TrimSpace(m[2]), Level: len(m[1])}
	}
	flush()

	return sections
}

// wholeDocument treats the full body as one level-0 section titled with the
// document title. Heading markers are dropped but the heading text is kept.
func wholeDocument(doc *domain.Document) domain.Section {
	lines := strings.Split(doc.Content, "\n")
	for i, line := range lines {
		if m := anyHeading.FindStringSubmatch(line); m != nil {
			lines[i] = strings.TrimSpace(m[1])
		}
	}
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	return domain.Section{
		Title: title,
		Body:  strings.TrimSpace(strings.Join(lines, "\n")),
	}
}

func newChunk(doc *domain.Document, section domain.Section, text string, index int, createdAt time.Time) domain.Chunk {
	return domain.Chunk{
		ID:            domain.ChunkID(doc.ID, index),
		Text:          text,
		DocID:         doc.ID,
		DocTitle:      doc.Title,
		SectionTitle:  section.Title,
		SectionLevel:  section.Level,
		Index:         index,
		TokenCount:    len(strings.Fields(text)),
		CharCount:     len(text),
		StartPosition: 0,
		EndPosition:   len(text),
		ContentHash:   domain.ContentHash(text),
		CreatedAt:     createdAt,
	}
}

// String describes the bounds for log lines.
func (c Config) String() string {
	return fmt.Sprintf("target=%d min=%d max=%d overlap=%d sections=%t",
		c.TargetTokens, c.MinTokens, c.MaxTokens, c.OverlapTokens, c.RespectSections)
}
