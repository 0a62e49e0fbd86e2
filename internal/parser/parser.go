package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/heefoo/apiloom/internal/model"
)

type Language string

const (
	LangC   Language = "c"
	LangCPP Language = "cpp"
)

// ExtractResult holds the functions recovered from one or more headers, in
// document order and concatenated in file order.
type ExtractResult struct {
	Functions  []model.Function
	Errors     []*UnparseableDeclaration
	FilesTotal int
}

func (r *ExtractResult) merge(other *ExtractResult) {
	r.Functions = append(r.Functions, other.Functions...)
	r.Errors = append(r.Errors, other.Errors...)
	r.FilesTotal += other.FilesTotal
}

type Parser struct {
	languages map[Language]*sitter.Language
	mu        sync.RWMutex
	lang      Language // grammar used for .h and .c files
	elideVoid bool
	logger    *slog.Logger
}

// ParserOption configures the parser
type ParserOption func(*Parser)

// WithLanguage selects the grammar used for plain C headers.
func WithLanguage(lang Language) ParserOption {
	return func(p *Parser) {
		p.lang = lang
	}
}

// WithoutVoidElision keeps an explicit `(void)` parameter list as a single
// unnamed void argument instead of normalizing it to no arguments.
func WithoutVoidElision() ParserOption {
	return func(p *Parser) {
		p.elideVoid = false
	}
}

func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		languages: make(map[Language]*sitter.Language),
		lang:      LangCPP, // handles extern "C" blocks as well as plain C
		elideVoid: true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.languages[LangC] = c.GetLanguage()
	p.languages[LangCPP] = cpp.GetLanguage()

	return p
}

func (p *Parser) GetLanguage(lang Language) *sitter.Language {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.languages[lang]
}

func (p *Parser) DetectLanguage(filename string) Language {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".h", ".c":
		return p.lang
	case ".hpp", ".hh", ".hxx", ".cpp", ".cc", ".cxx":
		return LangCPP
	default:
		return ""
	}
}

// IsSupportedFile returns true if the file extension is supported
func (p *Parser) IsSupportedFile(filePath string) bool {
	return p.DetectLanguage(filePath) != ""
}

// ExtractFiles extracts function declarations from every path in order.
// Results are concatenated without deduplication. A file that cannot be read
// or parsed aborts the whole batch; a single bad declaration does not.
func (p *Parser) ExtractFiles(ctx context.Context, paths []string) (*ExtractResult, error) {
	result := &ExtractResult{
		Functions: []model.Function{},
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := p.ExtractFile(ctx, path)
		if err != nil {
			return nil, err
		}
		result.merge(fileResult)
	}

	p.logger.Debug("headers extracted",
		slog.Int("files", result.FilesTotal),
		slog.Int("functions", len(result.Functions)),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

func (p *Parser) ExtractFile(ctx context.Context, filePath string) (*ExtractResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.ExtractContent(ctx, filePath, content)
}

// ExtractContent parses content as the header named filePath. The name is
// used for grammar selection and error reporting only.
func (p *Parser) ExtractContent(ctx context.Context, filePath string, content []byte) (*ExtractResult, error) {
	lang := p.DetectLanguage(filePath)
	if lang == "" {
		lang = p.lang
	}
	language := p.GetLanguage(lang)
	if language == nil {
		return nil, fmt.Errorf("language not supported: %s", lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(language)
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	defer tree.Close()

	w := &walker{
		file:      filePath,
		content:   content,
		elideVoid: p.elideVoid,
		logger:    p.logger,
		result: &ExtractResult{
			Functions:  []model.Function{},
			FilesTotal: 1,
		},
	}
	w.walk(tree.RootNode())

	for _, e := range w.result.Errors {
		p.logger.Warn("skipped declaration", slog.String("error", e.Error()))
	}

	return w.result, nil
}
